package weather

import "strings"

// conditionRules are checked in order, the first matching rule wins.
// Compound phrases must stay above their single-word parts.
var conditionRules = []struct {
	contains []string
	category string
}{
	{[]string{"雷"}, "гроза"},
	{[]string{"雪"}, "снег"},
	{[]string{"晴れ時々くもり", "晴時々曇"}, "солнечно, временами облачно"},
	{[]string{"くもり時々雨", "曇時々雨"}, "облачно, временами дождь"},
	{[]string{"雨時々やむ", "雨時々止む"}, "дождь с прояснениями"},
	{[]string{"雨"}, "дождь"},
	{[]string{"晴"}, "солнечно"},
	{[]string{"くも", "曇"}, "облачно"},
}

// Categorize maps the Japanese condition text to a short Russian category.
// Unknown conditions are returned unchanged.
func Categorize(condition string) string {
	for _, rule := range conditionRules {
		for _, s := range rule.contains {
			if strings.Contains(condition, s) {
				return rule.category
			}
		}
	}

	return condition
}
