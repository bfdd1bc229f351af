package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CommitListener subscribes to the customer_committed pg_notify channel
// fired by the batch writer's transactions and invokes onCommit for every
// notification. The composition root wires onCommit to the progress
// broker's recent-customers cache invalidation, so snapshots reflect
// committed rows promptly without polling the customers table.
type CommitListener struct {
	listener *pq.Listener
	onCommit func()
}

// NewCommitListener builds a listener on the given Postgres connection
// string. Connection problems are retried internally by pq.Listener.
func NewCommitListener(connStr string, onCommit func()) *CommitListener {
	l := pq.NewListener(connStr, 2*time.Second, time.Minute, nil)
	return &CommitListener{listener: l, onCommit: onCommit}
}

// Start begins listening and dispatches notifications until ctx is
// cancelled.
func (c *CommitListener) Start(ctx context.Context) error {
	if err := c.listener.Listen(commitChannel); err != nil {
		return fmt.Errorf("listen %s: %w", commitChannel, err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-c.listener.Notify:
				// n is nil after a reconnect; the next real notification
				// still arrives on the channel.
				if n != nil {
					c.onCommit()
				}
			case <-time.After(90 * time.Second):
				go c.listener.Ping()
			}
		}
	}()
	return nil
}

// Close tears down the underlying connection.
func (c *CommitListener) Close() error {
	return c.listener.Close()
}
