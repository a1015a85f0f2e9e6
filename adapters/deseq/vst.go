package deseq

import (
	"math"

	"godeseq/domain/counts"
	"godeseq/ports"
)

// VarianceStabilized returns log2(normalized count + 1) for every gene
// and sample, the transform quality diagnostics operate on.
func (e *Engine) VarianceStabilized(fm ports.FittedModel) (*counts.Matrix, error) {
	m, err := concrete(fm)
	if err != nil {
		return nil, err
	}
	out := &counts.Matrix{
		Genes:   append([]string(nil), m.Genes...),
		Samples: sampleNames(m),
		Values:  make([][]float64, len(m.Genes)),
	}
	for i := range m.Genes {
		norm := m.normalizedRow(i)
		vals := make([]float64, len(norm))
		for j, x := range norm {
			vals[j] = math.Log2(x + 1)
		}
		out.Values[i] = vals
	}
	return out, nil
}

func sampleNames(m *Model) []string {
	names := make([]string, len(m.Samples))
	for j, s := range m.Samples {
		names[j] = s.Name
	}
	return names
}
