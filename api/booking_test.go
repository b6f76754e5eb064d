package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/citywheel/scooterfleet/protocol"
)

func TestScooterUnreachableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"no response", protocol.ErrNoResponse, true},
		{
			"wrapped no response",
			fmt.Errorf("scooter did not activate: %w", protocol.ErrNoResponse),
			true,
		},
		{
			"mismatched reply",
			&protocol.UnexpectedStatusError{Command: protocol.CmdStart, Got: protocol.StatusParked},
			true,
		},
		{
			"wrapped mismatched reply",
			fmt.Errorf("scooter did not park: %w",
				&protocol.UnexpectedStatusError{Command: protocol.CmdStop, Got: protocol.StatusActivated}),
			true,
		},
		{"storage failure", errors.New("pq: connection reset"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := scooterUnreachable(tc.err); got != tc.want {
				t.Fatalf("scooterUnreachable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
