// Package notify provides the invitation notifiers available to the service.
package notify

import (
	"context"
	"time"

	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/foundation/logger"
)

// Log writes invitation notices to the service log. It stands in for an SMS
// gateway in environments that have none.
type Log struct {
	log *logger.Logger
}

// NewLog constructs a notifier that logs every notice.
func NewLog(log *logger.Logger) *Log {
	return &Log{log: log}
}

// Notify logs the notice. The phone number is masked down to its last digits.
func (l *Log) Notify(ctx context.Context, n invitationbus.Notice) error {
	inviter := ""
	if n.InviterName != nil {
		inviter = *n.InviterName
	}

	l.log.Info(ctx, "invitation notice",
		"invitation_id", n.InvitationID,
		"phone", mask(n.Phone.String()),
		"invitee", n.InviteeName.String(),
		"workspace", n.WorkspaceName,
		"role", n.Role.String(),
		"inviter", inviter,
		"expires_at", n.ExpiresAt.Format(time.RFC3339),
	)

	return nil
}

func mask(p string) string {
	const visible = 4
	if len(p) <= visible {
		return p
	}

	out := make([]byte, len(p))
	for i := range len(p) - visible {
		out[i] = '*'
	}
	copy(out[len(p)-visible:], p[len(p)-visible:])

	return string(out)
}
