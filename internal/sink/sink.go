/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package sink

import (
	"context"

	"github.com/genopshq/guardian/internal/analysis"
)

// Sink delivers the final payload. The core is agnostic to which sink
// runs; delivery failures surface as SinkError while the run itself
// still counts as completed.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, result *analysis.AggregateResult) error
}
