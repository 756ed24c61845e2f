package connectors

import (
	"context"

	"leadscreen/internal"
)

// MailConnector pulls raw messages from one mail provider. Implementations
// never touch the local database; archiving is the intake service's job.
type MailConnector interface {
	FetchInbox(ctx context.Context, mailbox string, max int) ([]internal.InboundMessage, error)
}
