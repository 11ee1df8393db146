package errortypes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWarning(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "below_floor_is_warning",
			err:  &BelowFloor{Message: "offered price below floor"},
			want: true,
		},
		{
			name: "collaborator_failure_is_warning",
			err:  &CollaboratorFailure{Message: "advisory service timed out"},
			want: true,
		},
		{
			name: "bad_input_is_not_warning",
			err:  &BadInput{Message: "missing start_date"},
			want: false,
		},
		{
			name: "plain_error_is_not_warning",
			err:  errors.New("anything"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWarning(tt.err))
		})
	}
}

func TestContainsFatalError(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want bool
	}{
		{
			name: "empty",
			errs: nil,
			want: false,
		},
		{
			name: "warnings_only",
			errs: []error{&InsufficientInventory{Message: "short by 1M"}, lowCoverageWarning("42.0")},
			want: false,
		},
		{
			name: "mixed",
			errs: []error{&BelowFloor{Message: "below floor"}, &ProductNotFound{Message: "no such product"}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsFatalError(tt.errs))
		})
	}
}

func lowCoverageWarning(coverage string) *Warning {
	return &Warning{
		Message:     "audience coverage below threshold: " + coverage + "%",
		WarningCode: LowCoverageWarningCode,
	}
}

func TestFatalOnlyAndWarningOnly(t *testing.T) {
	warn := &BelowFloor{Message: "below floor"}
	fatal := &BadInput{Message: "missing fields"}
	errs := []error{warn, fatal}

	assert.Equal(t, []error{fatal}, FatalOnly(errs))
	assert.Equal(t, []error{warn}, WarningOnly(errs))
}
