package stats

type DBRecord struct {

	// ID is an idempotent identifier derived from other attributes
	// (import time, allele and epitope), so repeated imports of the
	// same file do not multiply rows.
	ID string

	// Datetime specifies date and time when the record was imported
	Datetime int64

	// Allele is the normalized MHC allele name
	Allele string

	// Epitope is the upper-cased peptide sequence
	Epitope string

	// IC50 is the measured binding affinity in nM. Lower means
	// stronger binding.
	IC50 float64

	// TrainingExclude excludes the record from training. Typically,
	// this is for additional validation of the model.
	TrainingExclude bool
}

// EvalRun stores the aggregate result of one cross-validation run so
// that model variants can be compared over time.
type EvalRun struct {
	ID          string
	Datetime    int64
	ModelType   string
	NumFolds    int
	NumSamples  int
	MAE         float64
	Accuracy    float64
	Sensitivity float64
	Specificity float64
}
