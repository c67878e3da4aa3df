package plot

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var nonAlphanumeric = regexp.MustCompile("[^a-zA-Z0-9]+")

func replaceSpecialSymbols(input string) string {
	// Replace all non-alphanumeric characters with underscores
	processedString := nonAlphanumeric.ReplaceAllString(input, "_")
	// Remove any underscores at the beginning or end of the string
	return strings.Trim(processedString, "_")
}

// FileName turns the chart title into an ascii file name, e.g.
// "mean(sales) by city" -> "mean_sales_by_city.png".
func FileName(spec Spec, ext string) string {
	name := strings.ToLower(replaceSpecialSymbols(unidecode.Unidecode(spec.Layout.Title)))
	if name == "" {
		name = "chart"
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}
