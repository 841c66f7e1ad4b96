package instrument

import (
	"errors"
	"strings"
	"testing"

	"pkt.systems/searchbench/api"
)

func validInstrument() api.Instrument {
	return api.Instrument{
		ISIN:     "US0378331005",
		Name:     "Apple Inc",
		LongName: strings.Repeat("Global Technology Innovation Fund ", 4)[:120],
		Price:    150.25,
	}
}

func TestValidateAcceptsValidInstrument(t *testing.T) {
	if err := Validate(validInstrument()); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*api.Instrument)
		field  string
	}{
		{"short isin", func(in *api.Instrument) { in.ISIN = "US12" }, "isin"},
		{"lowercase country", func(in *api.Instrument) { in.ISIN = "us0378331005" }, "isin"},
		{"non-numeric check digit", func(in *api.Instrument) { in.ISIN = "US037833100X" }, "isin"},
		{"punctuation in body", func(in *api.Instrument) { in.ISIN = "US03783-1005" }, "isin"},
		{"empty name", func(in *api.Instrument) { in.Name = "" }, "name"},
		{"name too long", func(in *api.Instrument) { in.Name = strings.Repeat("x", NameMaxLen+1) }, "name"},
		{"long name too short", func(in *api.Instrument) { in.LongName = "short" }, "long_name"},
		{"long name too long", func(in *api.Instrument) { in.LongName = strings.Repeat("x", LongNameMaxLen+1) }, "long_name"},
		{"price below range", func(in *api.Instrument) { in.Price = 0.5 }, "price"},
		{"price above range", func(in *api.Instrument) { in.Price = 5000.01 }, "price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInstrument()
			tc.mutate(&in)
			err := Validate(in)
			if err == nil {
				t.Fatalf("Validate() = nil, want schema violation on %s", tc.field)
			}
			var sv *SchemaViolation
			if !errors.As(err, &sv) {
				t.Fatalf("Validate() = %v, want *SchemaViolation", err)
			}
			if sv.Field != tc.field {
				t.Fatalf("violation field = %q, want %q", sv.Field, tc.field)
			}
		})
	}
}

func TestClampPrice(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.5, MinPrice},
		{1.0, 1.0},
		{2500, 2500},
		{5000.0, 5000.0},
		{9999, MaxPrice},
	}
	for _, tc := range cases {
		if got := ClampPrice(tc.in); got != tc.want {
			t.Fatalf("ClampPrice(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestGeneratorProducesValidUniquePopulation(t *testing.T) {
	gen := NewGenerator(42)
	docs, err := gen.Generate(500)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(docs) != 500 {
		t.Fatalf("generated %d instruments, want 500", len(docs))
	}
	seen := make(map[string]struct{}, len(docs))
	for _, in := range docs {
		if err := Validate(in); err != nil {
			t.Fatalf("generated instrument invalid: %v", err)
		}
		if _, dup := seen[in.ISIN]; dup {
			t.Fatalf("duplicate ISIN %s", in.ISIN)
		}
		seen[in.ISIN] = struct{}{}
		if len(in.LongName) < LongNameMinLen || len(in.LongName) > LongNameMaxLen {
			t.Fatalf("long name length %d outside [%d,%d]", len(in.LongName), LongNameMinLen, LongNameMaxLen)
		}
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a, err := NewGenerator(7).Generate(100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := NewGenerator(7).Generate(100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("instrument %d differs between identically seeded generators: %+v vs %+v", i, a[i], b[i])
		}
	}
	c, err := NewGenerator(8).Generate(100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical populations")
	}
}
