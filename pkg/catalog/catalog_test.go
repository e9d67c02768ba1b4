package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/gobatch/pkg/cmdline"
)

var testParams = Params{Dataset: "/data/qsar/training final.csv", ToolPath: "D:/Weka-3-6/weka.jar"}

func TestDefault(t *testing.T) {
	c := Default()

	require.Equal(t, 10, c.Len())
	assert.Equal(t, "0001", c.IDs()[0])
	assert.Equal(t, "0010", c.IDs()[9])
	require.NoError(t, c.Validate())

	got, err := c.Render("0001", testParams)
	require.NoError(t, err)
	assert.Equal(t,
		`java -cp "D:/Weka-3-6/weka.jar" weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -F 5 -T 0.01 -R 1 -s "weka.attributeSelection.BestFirst" -i "/data/qsar/training final.csv"`,
		got)

	got, err = c.Render("0010", testParams)
	require.NoError(t, err)
	assert.Contains(t, got, `-B "weka.classifiers.lazy.IBk"`)
	assert.Contains(t, got, `-s "weka.attributeSelection.SubsetSizeForwardSelection"`)
}

func TestDefault_DistinctLogFiles(t *testing.T) {
	c := Default()
	names := make(map[string]string)
	for _, id := range c.IDs() {
		line, err := c.Render(id, testParams)
		require.NoError(t, err)
		name, err := cmdline.LogFileName(line)
		require.NoError(t, err)
		if prev, ok := names[name]; ok {
			t.Fatalf("entries %s and %s share log file %s", prev, id, name)
		}
		names[name] = id
	}
	assert.Contains(t, names, "J48_BestFirst.log")
	assert.Contains(t, names, "IBk_RankSearch.log")
}

func TestDefault_RenderedLinesSplitBack(t *testing.T) {
	c := Default()
	for _, id := range c.IDs() {
		line, err := c.Render(id, testParams)
		require.NoError(t, err)

		argv, err := cmdline.Split(line)
		require.NoError(t, err)
		assert.Equal(t, testParams.ToolPath, argv[2])
		assert.Equal(t, testParams.Dataset, argv[len(argv)-1])
	}
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "0001", FormatID(1))
	assert.Equal(t, "0042", FormatID(42))
	assert.Equal(t, "9999", FormatID(9999))
	assert.Equal(t, "12345", FormatID(12345))
}

func TestRender_Errors(t *testing.T) {
	c := Default()

	t.Run("missing id", func(t *testing.T) {
		_, err := c.Render("9999", testParams)
		var lerr *LookupError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, "9999", lerr.ID)
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := c.Render("0001", Params{ToolPath: "weka.jar"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dataset")
	})

	t.Run("quote in path", func(t *testing.T) {
		_, err := c.Render("0001", Params{Dataset: `a"b.arff`, ToolPath: "weka.jar"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quotes")
	})
}

func TestResolve(t *testing.T) {
	c := Default()

	lines, err := c.Resolve([]int{1, 6}, testParams)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trees.J48")
	assert.Contains(t, lines[1], "lazy.IBk")

	_, err = c.Resolve([]int{1, 2, 11, 12}, testParams)
	var lerr *LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "0011", lerr.ID)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]string
		want    string
	}{
		{name: "empty", entries: map[string]string{}, want: "no entries"},
		{name: "short id", entries: map[string]string{"1": "echo"}, want: "must be 4 digits"},
		{name: "non numeric id", entries: map[string]string{"00a1": "echo"}, want: "not numeric"},
		{name: "signed id", entries: map[string]string{"+001": "echo"}, want: "not numeric"},
		{name: "zero id", entries: map[string]string{"0000": "echo"}, want: ">= 0001"},
		{name: "unknown placeholder", entries: map[string]string{"0001": "run {input}"}, want: "unsupported placeholder {input}"},
		{name: "unclosed placeholder", entries: map[string]string{"0001": "run {tool"}, want: "unclosed placeholder"},
		{name: "multi line", entries: map[string]string{"0001": "run\nrun"}, want: "single line"},
		{name: "blank template", entries: map[string]string{"0001": "  "}, want: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLogFile(t *testing.T) {
	c := Default()

	name, err := c.LogFile("0001", Params{})
	require.NoError(t, err)
	assert.Equal(t, "J48_BestFirst.log", name)

	name, err = c.LogFile("0001", Params{Dataset: "/data/QSAR-Boston.arff", ToolPath: "/opt/x-B/weka.jar"})
	require.NoError(t, err)
	assert.Equal(t, "J48_BestFirst.log", name)

	_, err = c.LogFile("0099", Params{})
	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "0099", lookupErr.ID)

	_, err = c.LogFile("0001", Params{Dataset: `a"b.arff`, ToolPath: "weka.jar"})
	require.Error(t, err)
}

func TestLogFile_UnlabelledEntry(t *testing.T) {
	c, err := New(map[string]string{"0001": `echo "{dataset}" "{tool}"`})
	require.NoError(t, err)

	_, err = c.LogFile("0001", Params{})
	assert.ErrorIs(t, err, cmdline.ErrUnrecognizedCommand)
	assert.Contains(t, err.Error(), "catalog entry 0001")
}

func TestNew_FakeCatalogNeedNotValidate(t *testing.T) {
	c, err := New(map[string]string{"0001": `echo "{dataset}" "{tool}"`})
	require.NoError(t, err)

	got, err := c.Render("0001", Params{Dataset: "d.arff", ToolPath: "t.jar"})
	require.NoError(t, err)
	assert.Equal(t, `echo "d.arff" "t.jar"`, got)

	assert.ErrorIs(t, c.Validate(), cmdline.ErrUnrecognizedCommand)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "catalog.yaml")
		content := "entries:\n" +
			"  \"0001\": 'java -cp \"{tool}\" weka.attributeSelection.CfsSubsetEval -B \"weka.classifiers.bayes.NaiveBayes\" -s \"weka.attributeSelection.GreedyStepwise\" -i \"{dataset}\"'\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"0001"}, c.IDs())
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "catalog.json")
		content := `{"entries": {"0003": "java -cp \"{tool}\" weka.attributeSelection.WrapperSubsetEval -B \"weka.classifiers.trees.J48\" -s \"weka.attributeSelection.RankSearch\" -i \"{dataset}\""}}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		c, err := Load(path)
		require.NoError(t, err)
		line, err := c.Render("0003", testParams)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(line, `java -cp "D:/Weka-3-6/weka.jar"`))
	})

	t.Run("template without log markers is rejected", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("entries:\n  \"0001\": 'echo \"{dataset}\"'\n"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, cmdline.ErrUnrecognizedCommand)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})
}
