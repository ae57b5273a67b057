// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatISODuration(t *testing.T) {
	cases := []struct {
		iso  string
		want string
	}{
		{"PT1H2M3S", "1:02:03"},
		{"PT2H", "2:00:00"},
		{"PT1H30S", "1:00:30"},
		{"PT5M3S", "5:03"},
		{"PT45S", "0:45"},
		{"PT0S", "0:00"},
		// Inputs that don't parse pass through untouched.
		{"1:02:03", "1:02:03"},
		{"P1DT2H", "P1DT2H"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatISODuration(c.iso), c.iso)
	}
}
