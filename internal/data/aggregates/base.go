package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

const (
	fallbackOp    = "Portfolio.Write"
	statusSuccess = "success"
	statusUnknown = "failure"
)

// BaseDeps is shared by every aggregate. Only DB is required.
type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	return d
}

// executeWrite runs fn in one transaction and returns its error mapped to a code.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	return finishWrite(deps, op, start, deps.Runner.InTx(ctx, fn))
}

// finishWrite maps err and reports the outcome. Writes rejected before a
// transaction opens go through here too so every attempt is observed.
func finishWrite(deps BaseDeps, op string, start time.Time, err error) error {
	deps = deps.withDefaults()
	if op = strings.TrimSpace(op); op == "" {
		op = fallbackOp
	}
	mapped := MapError(op, err)
	switch domainagg.CodeOf(mapped) {
	case domainagg.CodeConflict:
		deps.Hooks.IncConflict(op)
	case domainagg.CodeRetryable:
		deps.Hooks.IncRetry(op)
	}
	deps.Hooks.ObserveOperation(op, aggregateErrorStatus(mapped), time.Since(start))
	return mapped
}

// aggregateErrorStatus is the metric status label for err: its code, or "success".
func aggregateErrorStatus(err error) string {
	if err == nil {
		return statusSuccess
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeOf(MapError(fallbackOp, err))
	}
	if code == "" {
		return statusUnknown
	}
	return string(code)
}
