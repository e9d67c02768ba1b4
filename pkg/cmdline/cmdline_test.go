package cmdline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const j48BestFirst = `java -cp "/opt/weka 3.8/weka.jar" weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -F 5 -T 0.01 -R 1 -s "weka.attributeSelection.BestFirst" -i "/data/qsar/training final.csv"`

func TestSplit(t *testing.T) {
	argv, err := Split(j48BestFirst)
	require.NoError(t, err)

	assert.Equal(t, "java", argv[0])
	assert.Equal(t, []string{"-cp", "/opt/weka 3.8/weka.jar"}, argv[1:3])
	assert.Equal(t, "/data/qsar/training final.csv", argv[len(argv)-1])
	assert.Len(t, argv, 16)
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "empty", line: ""},
		{name: "only whitespace", line: "   \t"},
		{name: "unterminated quote", line: `java -cp "weka.jar`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.line)
			require.Error(t, err)
		})
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Fields
	}{
		{
			name: "J48 with BestFirst",
			line: j48BestFirst,
			want: Fields{
				Evaluator: `WrapperSubsetEval -B "weka.classifiers.trees.J48" -F 5 -T 0.01 -R 1`,
				Search:    "BestFirst",
				Technique: "J48",
			},
		},
		{
			name: "IBk with SubsetSizeForwardSelection",
			line: `java -cp "weka.jar" weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.lazy.IBk" -F 5 -T 0.01 -R 1 -s "weka.attributeSelection.SubsetSizeForwardSelection" -i "in.arff"`,
			want: Fields{
				Evaluator: `WrapperSubsetEval -B "weka.classifiers.lazy.IBk" -F 5 -T 0.01 -R 1`,
				Search:    "SubsetSizeForwardSelection",
				Technique: "IBk",
			},
		},
		{
			name: "search with options after class name",
			line: `java -cp "weka.jar" weka.attributeSelection.CfsSubsetEval -B "weka.classifiers.bayes.NaiveBayes" -s "weka.attributeSelection.GreedyStepwise -R" -i "in.arff"`,
			want: Fields{
				Evaluator: `CfsSubsetEval -B "weka.classifiers.bayes.NaiveBayes"`,
				Search:    "GreedyStepwise",
				Technique: "NaiveBayes",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Derive(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerive_MissingMarkers(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantField string
	}{
		{name: "no evaluator marker", line: `echo -B "a.b" -s "x.Y" -i "d"`, wantField: "evaluator"},
		{name: "no search flag", line: `java weka.attributeSelection.Eval -B "a.b" -i "d"`, wantField: "evaluator"},
		{name: "no input flag", line: `java weka.attributeSelection.Eval -B "a.b" -s "x.Y"`, wantField: "search"},
		{name: "no classifier flag", line: `java weka.attributeSelection.Eval -s "x.Y" -i "d"`, wantField: "technique"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive(tt.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnrecognizedCommand)

			var ferr *FieldError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.wantField, ferr.Field)
		})
	}
}

func TestLogFileName(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "J48 BestFirst", line: j48BestFirst, want: "J48_BestFirst.log"},
		{
			name: "IBk RankSearch",
			line: `java -cp "weka.jar" weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.lazy.IBk" -F 5 -T 0.01 -R 1 -s "weka.attributeSelection.RankSearch" -i "a.b.arff"`,
			want: "IBk_RankSearch.log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LogFileName(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerive_DatasetPathContainingClassifierFlag(t *testing.T) {
	j48 := `java -cp "weka.jar" weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -F 5 -T 0.01 -R 1 -s "weka.attributeSelection.BestFirst" -i "/data/QSAR-Boston.arff"`
	ibk := `java -cp "/opt/x-B/weka.jar" weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.lazy.IBk" -F 5 -T 0.01 -R 1 -s "weka.attributeSelection.BestFirst" -i "/data/QSAR-Boston.arff"`

	fields, err := Derive(j48)
	require.NoError(t, err)
	assert.Equal(t, "J48", fields.Technique)

	nameJ48, err := LogFileName(j48)
	require.NoError(t, err)
	assert.Equal(t, "J48_BestFirst.log", nameJ48)

	nameIBk, err := LogFileName(ibk)
	require.NoError(t, err)
	assert.Equal(t, "IBk_BestFirst.log", nameIBk)
}

func TestLogFileName_SameTechniqueAndSearchShareFile(t *testing.T) {
	a := `java -cp "weka.jar" weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -F 5 -T 0.01 -R 1 -s "weka.attributeSelection.BestFirst" -i "one.arff"`
	b := `java -cp "other.jar" weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -F 10 -T 0.05 -R 2 -s "weka.attributeSelection.BestFirst" -i "two.arff"`

	nameA, err := LogFileName(a)
	require.NoError(t, err)
	nameB, err := LogFileName(b)
	require.NoError(t, err)
	assert.Equal(t, nameA, nameB)
}

func TestLogFileName_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "no classifier flag", line: `java -s "weka.attributeSelection.BestFirst" -i "d"`},
		{name: "no quoted input flag", line: `java weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -s BestFirst -i d`},
		{name: "path separator in name", line: `java weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -s "weka.attributeSelection.a/b" -i "d"`},
		{name: "quote in name", line: `java weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -s "weka.attributeSelection.Ab"c" -i "d"`},
		{name: "whitespace in name", line: `java weka.attributeSelection.WrapperSubsetEval -B "weka.classifiers.trees.J48" -s "weka.attributeSelection.Best First" -i "d"`},
		{name: "unquoted classifier", line: `java weka.attributeSelection.WrapperSubsetEval -B weka.classifiers.trees.J48 -s "weka.attributeSelection.BestFirst" -i "d"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LogFileName(tt.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnrecognizedCommand)
		})
	}
}
