package stats

type ListFilter struct {
	Allele           *string
	TrainingExcluded *bool
}

func (filter ListFilter) SetAllele(v string) ListFilter {
	filter.Allele = &v
	return filter
}

func (filter ListFilter) SetTrainingExcluded(v bool) ListFilter {
	filter.TrainingExcluded = &v
	return filter
}
