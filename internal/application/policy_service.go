package application

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PolicyRepository captures the persistence operations for the escalation policy.
type PolicyRepository interface {
	GetPolicy(ctx context.Context) (EscalationPolicy, error)
	SavePolicy(ctx context.Context, policy EscalationPolicy) error
}

const (
	minLevelTimeout = 5 * time.Second
	maxLevelTimeout = 10 * time.Minute
	maxPolicyLevels = 10
)

// PolicyService manages the singleton escalation policy.
type PolicyService struct {
	policies  PolicyRepository
	userCheck UserChecker
	audit     AuditRecorder
}

// NewPolicyService wires dependencies for the policy service.
func NewPolicyService(policies PolicyRepository, userCheck UserChecker, audit AuditRecorder) *PolicyService {
	return &PolicyService{policies: policies, userCheck: userCheck, audit: audit}
}

// GetPolicy returns the escalation policy. A missing record yields a disabled
// zero policy rather than an error.
func (s *PolicyService) GetPolicy(ctx context.Context) (EscalationPolicy, error) {
	if s == nil {
		return EscalationPolicy{}, fmt.Errorf("PolicyService is nil")
	}
	policy, err := s.policies.GetPolicy(ctx)
	if errors.Is(err, ErrNotFound) {
		return EscalationPolicy{}, nil
	}
	return policy, err
}

// UpdatePolicy validates and saves the escalation policy for administrators.
func (s *PolicyService) UpdatePolicy(ctx context.Context, principal Principal, policy EscalationPolicy) error {
	if s == nil {
		return fmt.Errorf("PolicyService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	vErr := &ValidationError{}
	if policy.Enabled && len(policy.Levels) == 0 {
		vErr.add("levels", "an enabled policy needs at least one level")
	}
	if len(policy.Levels) > maxPolicyLevels {
		vErr.add("levels", fmt.Sprintf("at most %d levels are allowed", maxPolicyLevels))
	}
	for i, level := range policy.Levels {
		if level.UserID == "" {
			vErr.add(fmt.Sprintf("levels[%d].user_id", i), "user is required")
			continue
		}
		if s.userCheck != nil {
			ok, err := s.userCheck.UserExists(ctx, level.UserID)
			if err == nil && !ok {
				vErr.add(fmt.Sprintf("levels[%d].user_id", i), "unknown user: "+level.UserID)
			}
		}
		if level.Timeout != 0 && (level.Timeout < minLevelTimeout || level.Timeout > maxLevelTimeout) {
			vErr.add(fmt.Sprintf("levels[%d].timeout", i), "timeout must be between 5 seconds and 10 minutes")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}

	if err := s.policies.SavePolicy(ctx, policy); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.RecordAudit(ctx, principal.UserID, "escalation_policy.update",
			fmt.Sprintf("enabled=%t levels=%d", policy.Enabled, len(policy.Levels)))
	}
	return nil
}
