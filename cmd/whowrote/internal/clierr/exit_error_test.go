// SPDX-License-Identifier: AGPL-3.0-or-later

package clierr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: ExitFailure},
		{name: "usage", err: New(ExitUsage, "bad flag"), want: ExitUsage},
		{name: "zero normalized", err: New(0, "odd"), want: ExitFailure},
		{name: "wrapped twice", err: fmt.Errorf("outer: %w", Usage("bad dir", os.ErrNotExist)), want: ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeOf(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ExitFailure, "writing report", os.ErrPermission)
	assert.Equal(t, "writing report: "+os.ErrPermission.Error(), err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)

	assert.Equal(t, "plain", Wrap(ExitUsage, "plain", nil).Error())
	assert.Equal(t, "rows 7 out of 3", Newf(ExitUsage, "rows %d out of %d", 7, 3).Error())
}
