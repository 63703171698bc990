package tools

import (
	"context"
	"log/slog"

	"github.com/paynow-labs/paygate/pkg/domain"
	"github.com/paynow-labs/paygate/pkg/util"
)

const (
	caseStatusCreated = "CREATED"
	queueSenior       = "senior_analyst"
	queueStandard     = "analyst_team"
)

// CaseCreator opens manual review cases for REVIEW and BLOCK decisions.
// It stands in for the external case-management system.
type CaseCreator struct {
	log *slog.Logger
}

// NewCaseCreator builds the case-creation tool.
func NewCaseCreator(log *slog.Logger) *CaseCreator {
	if log == nil {
		log = slog.Default()
	}
	return &CaseCreator{log: log}
}

// CreateCase opens a case and assigns it to a queue based on priority.
func (t *CaseCreator) CreateCase(ctx context.Context, req domain.CaseRequest) (domain.CaseResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.CaseResult{}, err
	}

	result := domain.CaseResult{
		CaseID:     domain.NewCaseID(),
		Status:     caseStatusCreated,
		AssignedTo: queueStandard,
	}
	if req.Priority == "HIGH" {
		result.AssignedTo = queueSenior
	}

	t.log.Info("review case created",
		"case_id", result.CaseID,
		"customer_id", util.MaskCustomerID(req.CustomerID),
		"priority", req.Priority,
		"assigned_to", result.AssignedTo)
	return result, nil
}
