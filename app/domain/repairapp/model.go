package repairapp

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
)

// Repair is the operator request naming the user to reconcile.
type Repair struct {
	Identifier string `json:"identifier" validate:"required"`
}

// Decode implements the web.Decoder interface.
func (app *Repair) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app Repair) Validate() error {
	if err := errs.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}

// Step is one reconciled projection of one intent.
type Step struct {
	Name        string `json:"name"`
	WorkspaceID string `json:"workspaceId"`
	UserID      string `json:"userId,omitempty"`
	Outcome     string `json:"outcome"`
	Detail      string `json:"detail,omitempty"`
}

// Report is the structured outcome of a repair run.
type Report struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Identifier string `json:"identifier"`
	Converged  bool   `json:"converged"`
	Steps      []Step `json:"steps"`
}

// Encode implements the web.Encoder interface.
func (r Report) Encode() ([]byte, string, error) {
	data, err := json.Marshal(r)
	return data, "application/json", err
}

func toAppReport(bus repairbus.Report) Report {
	steps := make([]Step, len(bus.Steps))
	for i, s := range bus.Steps {
		steps[i] = Step{
			Name:        s.Name,
			WorkspaceID: s.WorkspaceID.String(),
			Outcome:     string(s.Outcome),
			Detail:      s.Detail,
		}

		if s.UserID != uuid.Nil {
			steps[i].UserID = s.UserID.String()
		}
	}

	return Report{
		Success:    true,
		Message:    "repair complete",
		Identifier: bus.Identifier,
		Converged:  bus.Converged(),
		Steps:      steps,
	}
}
