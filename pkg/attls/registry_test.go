package attls

import (
	"errors"
	"testing"
)

// letter is a test category with a gap at code 2.
type letter struct {
	name string
	code uint8
}

func (l letter) Code() uint8 { return l.code }

func TestBuildTable_GapAndOverflow(t *testing.T) {
	a, b, c := letter{"A", 0}, letter{"B", 1}, letter{"C", 3}
	table, err := BuildTable(CategoryStatPolicy, []letter{a, b, c})
	if err != nil {
		t.Fatalf("BuildTable() error = %v", err)
	}
	if table.MaxCode() != 3 {
		t.Errorf("MaxCode() = %d, want 3", table.MaxCode())
	}

	tests := []struct {
		code    uint8
		want    letter
		wantErr bool
	}{
		{0, a, false},
		{1, b, false},
		{2, letter{}, true},
		{3, c, false},
		{4, letter{}, true},
		{255, letter{}, true},
	}

	for _, tt := range tests {
		got, err := table.Resolve(tt.code)
		if tt.wantErr {
			var uce *UnknownCodeError
			if !errors.As(err, &uce) {
				t.Errorf("Resolve(%d) error = %v, want *UnknownCodeError", tt.code, err)
				continue
			}
			if uce.Category != CategoryStatPolicy || uce.Code != tt.code {
				t.Errorf("Resolve(%d) error = %+v, want {StatPolicy %d}", tt.code, uce, tt.code)
			}
			if !errors.Is(err, ErrUnknownCode) {
				t.Errorf("Resolve(%d) error should match ErrUnknownCode", tt.code)
			}
			continue
		}
		if err != nil {
			t.Errorf("Resolve(%d) error = %v", tt.code, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestBuildTable_Invalid(t *testing.T) {
	if _, err := BuildTable(CategoryStatConn, []letter{{"A", 1}, {"B", 1}}); !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("BuildTable(duplicate) error = %v, want ErrDuplicateCode", err)
	}
	if _, err := BuildTable[letter](CategoryStatConn, nil); !errors.Is(err, ErrEmptyCategory) {
		t.Errorf("BuildTable(empty) error = %v, want ErrEmptyCategory", err)
	}
}

func TestRegistry_ResolvesDefinedValues(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	for _, v := range StatPolicyValues() {
		if got, err := r.StatPolicy(v.Code()); err != nil || got != v {
			t.Errorf("StatPolicy(%d) = %v, %v, want %v", v.Code(), got, err, v)
		}
	}
	for _, v := range StatConnValues() {
		if got, err := r.StatConn(v.Code()); err != nil || got != v {
			t.Errorf("StatConn(%d) = %v, %v, want %v", v.Code(), got, err, v)
		}
	}
	for _, v := range SecurityTypeValues() {
		if got, err := r.SecurityType(v.Code()); err != nil || got != v {
			t.Errorf("SecurityType(%d) = %v, %v, want %v", v.Code(), got, err, v)
		}
	}
	for _, v := range Fips140Values() {
		if got, err := r.Fips140(v.Code()); err != nil || got != v {
			t.Errorf("Fips140(%d) = %v, %v, want %v", v.Code(), got, err, v)
		}
	}
	for _, v := range ProtocolValues() {
		if got, err := r.Protocol(v.Version(), v.Mod()); err != nil || got != v {
			t.Errorf("Protocol(%d, %d) = %v, %v, want %v", v.Version(), v.Mod(), got, err, v)
		}
	}
}

func TestRegistry_UnknownCodes(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	tests := []struct {
		name     string
		resolve  func() error
		category Category
		code     uint8
	}{
		{"policy zero", func() error { _, err := r.StatPolicy(0); return err }, CategoryStatPolicy, 0},
		{"policy above max", func() error { _, err := r.StatPolicy(6); return err }, CategoryStatPolicy, 6},
		{"conn zero", func() error { _, err := r.StatConn(0); return err }, CategoryStatConn, 0},
		{"security type", func() error { _, err := r.SecurityType(7); return err }, CategorySecurityType, 7},
		{"fips", func() error { _, err := r.Fips140(255); return err }, CategoryFips140, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var uce *UnknownCodeError
			if err := tt.resolve(); !errors.As(err, &uce) {
				t.Fatalf("error = %v, want *UnknownCodeError", err)
			}
			if uce.Category != tt.category || uce.Code != tt.code {
				t.Errorf("error = %+v, want {%s %d}", uce, tt.category, tt.code)
			}
		})
	}
}

func TestRegistry_UnknownProtocol(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	pairs := [][2]uint8{{3, 5}, {1, 0}, {0, 1}, {2, 1}, {255, 0}, {0, 255}}
	for _, p := range pairs {
		_, err := r.Protocol(p[0], p[1])
		var uce *UnknownCodeError
		if !errors.As(err, &uce) {
			t.Errorf("Protocol(%d, %d) error = %v, want *UnknownCodeError", p[0], p[1], err)
			continue
		}
		if uce.Category != CategoryProtocol || uce.Code != p[0] || uce.Mod != p[1] {
			t.Errorf("Protocol(%d, %d) error = %+v", p[0], p[1], uce)
		}
	}
}

func TestUnknownCodeError_Message(t *testing.T) {
	tests := []struct {
		err  *UnknownCodeError
		want string
	}{
		{&UnknownCodeError{Category: CategoryStatPolicy, Code: 2}, "attls: unknown StatPolicy code 2"},
		{&UnknownCodeError{Category: CategoryProtocol, Code: 3, Mod: 9}, "attls: unknown Protocol code (3, 9)"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
