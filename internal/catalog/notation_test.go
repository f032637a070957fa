package catalog

import (
	"testing"

	"tradecore/pkg/domain"
)

func TestParseConverterStagesAndCounts(t *testing.T) {
	cases := []struct {
		in    string
		stage domain.Stage
		input domain.Items
		out   domain.Items
	}{
		{"g2w➪Y", domain.ConverterProduction, domain.Items{domain.ItemFood: 2, domain.ItemCulture: 1}, domain.Items{domain.ItemEnergy: 1}},
		{"b→*3", domain.ConverterTrading, domain.Items{domain.ItemIndustry: 1}, domain.Items{domain.ItemShip: 3}},
		{"U➾$", domain.ConverterStealing, domain.Items{domain.ItemHypertech: 1}, domain.Items{domain.ItemScore: 1}},
		{"a2", domain.ConverterConstant, domain.Items{}, domain.Items{domain.ItemWildSmall: 2}},
		{"gX➪w", domain.ConverterProduction, domain.Items{domain.ItemFood: 1}, domain.Items{domain.ItemCulture: 1}},
		{"s12➪L", domain.ConverterProduction, domain.Items{domain.ItemArbitrarySmall: 12}, domain.Items{domain.ItemArbitraryBig: 1}},
	}
	for _, tc := range cases {
		conv, err := ParseConverter(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if conv.Stage != tc.stage {
			t.Fatalf("%s: stage %q, want %q", tc.in, conv.Stage, tc.stage)
		}
		if !sameItems(conv.Input(), tc.input) || !sameItems(conv.Outputs, tc.out) {
			t.Fatalf("%s: got %v -> %v", tc.in, conv.Input(), conv.Outputs)
		}
	}
}

func TestParseConverterAlternativesAndDonation(t *testing.T) {
	conv, err := ParseConverter("g2/w2→$+w")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(conv.Inputs) != 2 || conv.Inputs[1][domain.ItemCulture] != 2 {
		t.Fatalf("unexpected alternatives %v", conv.Inputs)
	}
	if conv.Outputs[domain.ItemScore] != 1 || conv.Outputs[domain.ItemCulture+domain.DonationSuffix] != 1 {
		t.Fatalf("unexpected outputs %v", conv.Outputs)
	}
}

func TestParseConvertersAndErrors(t *testing.T) {
	convs, err := ParseConverters("w➪g,g➪w")
	if err != nil || len(convs) != 2 {
		t.Fatalf("expected two converters, got %d (%v)", len(convs), err)
	}
	if _, err := ParseConverter("q➪g"); err == nil {
		t.Fatalf("expected unknown letter error")
	}
	if _, err := ParseItems("2g", false); err == nil {
		t.Fatalf("expected leading count error")
	}
}

func TestFormatItems(t *testing.T) {
	got := FormatItems(domain.Items{domain.ItemFood: 2, domain.ItemEnergy: 1, domain.ItemCulture: 0})
	if got != "Yg2" {
		t.Fatalf("unexpected notation %q", got)
	}
}

func sameItems(a, b domain.Items) bool {
	a, b = a.Compact(), b.Compact()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
