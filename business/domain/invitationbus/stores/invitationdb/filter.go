package invitationdb

import (
	"bytes"
	"strings"

	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
)

func applyFilter(filter invitationbus.QueryFilter, data map[string]any, buf *bytes.Buffer) {
	var wc []string

	if filter.WorkspaceID != nil {
		data["workspace_id"] = filter.WorkspaceID.String()
		wc = append(wc, "workspace_id = :workspace_id")
	}

	if filter.Status != nil {
		data["status"] = filter.Status.String()
		wc = append(wc, "status = :status")
	}

	if filter.Phone != nil {
		data["phone"] = filter.Phone.String()
		wc = append(wc, "phone = :phone")
	}

	if len(wc) > 0 {
		buf.WriteString(" WHERE ")
		buf.WriteString(strings.Join(wc, " AND "))
	}
}
