package catalog

import "fmt"

var (
	defaultClassifiers = []string{
		"weka.classifiers.trees.J48",
		"weka.classifiers.lazy.IBk",
	}
	defaultSearches = []string{
		"BestFirst",
		"GeneticSearch",
		"LinearForwardSelection",
		"RankSearch",
		"SubsetSizeForwardSelection",
	}
)

const wrapperTemplate = `java -cp "{tool}" weka.attributeSelection.WrapperSubsetEval -B "%s" -F 5 -T 0.01 -R 1 -s "weka.attributeSelection.%s" -i "{dataset}"`

// DefaultEntries returns the reference table: WrapperSubsetEval over each
// classifier (J48, IBk) crossed with each search method, ids 0001..0010.
func DefaultEntries() map[string]string {
	entries := make(map[string]string, len(defaultClassifiers)*len(defaultSearches))
	n := 1
	for _, cls := range defaultClassifiers {
		for _, search := range defaultSearches {
			entries[FormatID(n)] = fmt.Sprintf(wrapperTemplate, cls, search)
			n++
		}
	}
	return entries
}

// Default returns the reference catalog.
func Default() *Catalog {
	c, err := New(DefaultEntries())
	if err != nil {
		panic(fmt.Sprintf("catalog: default entries do not compile: %v", err))
	}
	return c
}
