package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"tradecore/pkg/domain"
)

// Letter codes accepted by the compact converter notation.
var letterItems = map[rune]string{
	'g': domain.ItemFood,
	'b': domain.ItemIndustry,
	'w': domain.ItemCulture,
	'B': domain.ItemInformation,
	'T': domain.ItemBiotech,
	'Y': domain.ItemEnergy,
	'U': domain.ItemHypertech,
	'*': domain.ItemShip,
	'$': domain.ItemScore,
	's': domain.ItemArbitrarySmall,
	'L': domain.ItemArbitraryBig,
	'A': domain.ItemWildBig,
	'a': domain.ItemWildSmall,
	'J': domain.ItemJungle,
	'D': domain.ItemDesert,
	'W': domain.ItemWater,
	'I': domain.ItemIce,
	'N': domain.ItemArbitraryWorld,
	'F': "Fleet",
	'Z': "ZethEnvoy",
	'R': "RelicWorld",
}

// Ignored placeholder letters.
var ignoredLetters = map[rune]bool{'X': true}

var arrowStages = map[rune]domain.Stage{
	'➪': domain.ConverterProduction,
	'→': domain.ConverterTrading,
	'➾': domain.ConverterStealing,
	'↺': domain.ConverterConstant,
}

// ParseItems parses a letter/count bundle such as "g2wY". When donation is
// set every resource receives the donation suffix.
func ParseItems(s string, donation bool) (domain.Items, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "§"))
	items := domain.Items{}
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		i++
		if unicode.IsSpace(r) {
			continue
		}
		if unicode.IsDigit(r) {
			return nil, fmt.Errorf("notation %q: count without resource at %d", s, i-1)
		}
		count := 0
		digits := 0
		for i < len(runes) && unicode.IsDigit(runes[i]) {
			count = count*10 + int(runes[i]-'0')
			digits++
			i++
		}
		if digits == 0 {
			count = 1
		}
		if ignoredLetters[r] {
			continue
		}
		name, ok := letterItems[r]
		if !ok {
			return nil, fmt.Errorf("notation %q: unknown resource letter %q", s, r)
		}
		if donation {
			name += domain.DonationSuffix
		}
		items[name] += count
	}
	return items, nil
}

// parseOutputs splits "a+b" into regular and donation outputs.
func parseOutputs(s string) (domain.Items, error) {
	regular, donated, found := strings.Cut(s, "+")
	out, err := ParseItems(regular, false)
	if err != nil {
		return nil, err
	}
	if !found {
		return out, nil
	}
	extra, err := ParseItems(donated, true)
	if err != nil {
		return nil, err
	}
	return out.Add(extra), nil
}

// ParseConverter parses one converter such as "g2w➪Y" or "g3/w3→$". A string
// without an arrow is a constant effect with no input.
func ParseConverter(s string) (domain.Converter, error) {
	runes := []rune(strings.TrimSpace(s))
	arrowAt := -1
	var stage domain.Stage
	for i, r := range runes {
		if st, ok := arrowStages[r]; ok {
			arrowAt, stage = i, st
			break
		}
	}
	if arrowAt < 0 {
		out, err := parseOutputs(string(runes))
		if err != nil {
			return domain.Converter{}, err
		}
		return domain.Converter{Inputs: []domain.Items{{}}, Outputs: out, Stage: domain.ConverterConstant}, nil
	}
	input := string(runes[:arrowAt])
	output := string(runes[arrowAt+1:])

	var inputs []domain.Items
	for _, group := range strings.Split(input, "/") {
		bundle, err := ParseItems(group, false)
		if err != nil {
			return domain.Converter{}, err
		}
		inputs = append(inputs, bundle)
	}
	out, err := parseOutputs(output)
	if err != nil {
		return domain.Converter{}, err
	}
	return domain.Converter{Inputs: inputs, Outputs: out, Stage: stage}, nil
}

// ParseConverters parses a comma separated converter list.
func ParseConverters(s string) ([]domain.Converter, error) {
	var out []domain.Converter
	for _, part := range strings.Split(s, ",") {
		conv, err := ParseConverter(part)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

// FormatItems renders a bundle back into letter notation using sorted
// resource names. Resources without a letter are rendered by name.
func FormatItems(items domain.Items) string {
	byName := make(map[string]rune, len(letterItems))
	for r, name := range letterItems {
		byName[name] = r
	}
	var b strings.Builder
	for _, name := range items.Keys() {
		qty := items[name]
		if qty == 0 {
			continue
		}
		r, ok := byName[name]
		if !ok {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s×%d ", name, qty)
			continue
		}
		b.WriteRune(r)
		if qty != 1 {
			fmt.Fprintf(&b, "%d", qty)
		}
	}
	return strings.TrimSpace(b.String())
}
