package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	f := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(f, []byte(`{"ReadFileName":"reads.fastq","FormatFileName":"fmt.txt","Threads":4}`), 0644))

	c, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, "reads.fastq", c.ReadFileName)
	assert.Equal(t, 4, c.Threads)
	assert.Equal(t, 2, c.MaxConstantErrors) // default preserved
}

func TestValidateRequiresReadAndFormat(t *testing.T) {
	c := Default()
	err := c.Validate(1)
	assert.Error(t, err)

	c.ReadFileName = "reads.fastq"
	err = c.Validate(1)
	assert.Error(t, err)

	c.FormatFileName = "fmt.txt"
	err = c.Validate(1)
	assert.NoError(t, err)
}

func TestValidateExpandsSharedBarcodeBudget(t *testing.T) {
	c := Default()
	c.ReadFileName = "r"
	c.FormatFileName = "f"
	c.MaxBarcodeErrors = []int{2}
	require.NoError(t, c.Validate(3))
	assert.Equal(t, []int{2, 2, 2}, c.MaxBarcodeErrors)
}

func TestValidateRejectsMismatchedExplicitBudgetList(t *testing.T) {
	c := Default()
	c.ReadFileName = "r"
	c.FormatFileName = "f"
	c.MaxBarcodeErrors = []int{1, 2}
	err := c.Validate(3)
	assert.Error(t, err)
}
