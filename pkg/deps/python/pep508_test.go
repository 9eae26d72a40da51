package python

import (
	"reflect"
	"testing"
)

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		input string
		want  Requirement
		ok    bool
	}{
		{"requests", Requirement{Name: "requests"}, true},
		{"requests[socks, security]>=2.28,<3", Requirement{Name: "requests", Extras: []string{"socks", "security"}, Constraint: ">=2.28,<3"}, true},
		{`pydantic>=2.0; python_version >= "3.8"`, Requirement{Name: "pydantic", Constraint: ">=2.0", Marker: `python_version >= "3.8"`}, true},
		{"demo @ https://x.test/demo.whl ; sys_platform == 'linux'", Requirement{Name: "demo", URL: "https://x.test/demo.whl", Marker: "sys_platform == 'linux'"}, true},
		{"foo (>=1.0)", Requirement{Name: "foo", Constraint: ">=1.0"}, true},
		{"foo===1.0", Requirement{Name: "foo", Constraint: "===1.0"}, true},
		{"zope.interface~=6.0", Requirement{Name: "zope.interface", Constraint: "~=6.0"}, true},
		{"foo bar", Requirement{}, false},
		{"-e foo", Requirement{}, false},
		{"", Requirement{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseRequirement(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseRequirement(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRequirement(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
