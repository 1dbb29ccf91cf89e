package dataimport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timodonnell/mhcpred/feats"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalizeAllele(t *testing.T) {
	assert.Equal(t, "HLA-A0301", NormalizeAllele(" HLA-A*0301 "))
	assert.Equal(t, "HLA-B0702", NormalizeAllele("HLA-B0702"))
}

func TestReadBindingDataCleansAndFilters(t *testing.T) {
	path := writeTempCSV(t, "mhc1.csv",
		"MHC Allele,Epitope,IC50\n"+
			"HLA-A*0201, siinfekllm ,120.5\n"+
			"HLA-A*0201,SHORTPEP,50\n"+ // 8 residues: dropped
			"HLA-B*0702,AAAAAAAAA,2000000\n"+ // above ceiling: dropped
			"HLA-B*0702,CCCCCCCCC,900\n")

	records, stats, err := ReadBindingData(path, 1e6)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.NumRead)
	assert.Equal(t, 2, stats.NumFiltered)
	require.Equal(t, 2, len(records))
	assert.Equal(t, "HLA-A0201", records[0].Allele)
	assert.Equal(t, "SIINFEKLLM", records[0].Epitope)
	assert.Equal(t, 120.5, records[0].IC50)
}

func TestReadBindingDataMissingColumn(t *testing.T) {
	path := writeTempCSV(t, "bad.csv", "Allele,Peptide\nx,y\n")
	_, _, err := ReadBindingData(path, 1e6)
	assert.Error(t, err)
}

func TestDeduplicateMedian(t *testing.T) {
	records := []AssayRecord{
		{Allele: "A", Epitope: "PEP1PEP1P", IC50: 100},
		{Allele: "A", Epitope: "PEP1PEP1P", IC50: 300},
		{Allele: "A", Epitope: "PEP1PEP1P", IC50: 200},
		{Allele: "B", Epitope: "PEP2PEP2P", IC50: 40},
		{Allele: "B", Epitope: "PEP2PEP2P", IC50: 60},
		{Allele: "C", Epitope: "PEP3PEP3P", IC50: 7},
	}
	out, numDuplicates := DeduplicateMedian(records)
	require.Equal(t, 3, len(out))
	assert.Equal(t, 3, numDuplicates)
	assert.Equal(t, 200.0, out[0].IC50) // odd group: middle value
	assert.Equal(t, 50.0, out[1].IC50)  // even group: mean of middles
	assert.Equal(t, 7.0, out[2].IC50)
}

func TestReadPseudoSequences(t *testing.T) {
	path := writeTempCSV(t, "seqs.csv",
		"Allele,Residues\n"+
			"HLA-A*0201,ACDEF\n"+
			"HLA-B0702,GHIKL\n")

	seqs, err := ReadPseudoSequences(path)
	require.NoError(t, err)
	assert.Equal(t, 5, seqs.Length())
	assert.Equal(t, 2, seqs.NumAlleles())

	seq, ok := seqs.Lookup("HLA-A0201")
	assert.True(t, ok)
	assert.Equal(t, "ACDEF", seq)

	_, ok = seqs.Lookup("HLA-C0102")
	assert.False(t, ok)
}

func TestReadPseudoSequencesUnevenLengths(t *testing.T) {
	path := writeTempCSV(t, "seqs.csv",
		"Allele,Residues\nA1,ACDEF\nA2,ACD\n")
	_, err := ReadPseudoSequences(path)
	assert.ErrorIs(t, err, feats.ErrDimensionMismatch)
}

func TestNearestAllele(t *testing.T) {
	path := writeTempCSV(t, "seqs.csv",
		"Allele,Residues\nHLA-A0201,ACDEF\nHLA-B0702,GHIKL\n")
	seqs, err := ReadPseudoSequences(path)
	require.NoError(t, err)
	assert.Equal(t, "HLA-A0201", seqs.Nearest("HLA-A0202"))
}

func TestBuildDataset(t *testing.T) {
	seqsPath := writeTempCSV(t, "seqs.csv",
		"Allele,Residues\nHLA-A0201,ACDE\n")
	seqs, err := ReadPseudoSequences(seqsPath)
	require.NoError(t, err)

	records := []AssayRecord{
		{Allele: "HLA-A0201", Epitope: "ACDEFGHIK", IC50: 100},    // 1 window
		{Allele: "HLA-A0201", Epitope: "ACDEFGHIKLMN", IC50: 800}, // 4 windows
		{Allele: "HLA-X9999", Epitope: "ACDEFGHIK", IC50: 50},     // unknown allele
	}
	ds, err := BuildDataset(records, seqs, feats.NewAlphabet())
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, 9*4, ds.NumDims())
	assert.Equal(t, 1.0, ds.W[0])
	assert.Equal(t, 0.25, ds.W[1])
	assert.Equal(t, 800.0, ds.Y[4])
}
