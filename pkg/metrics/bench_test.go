package metrics

import (
	"testing"
)

func BenchmarkCompute(b *testing.B) {
	series := make([][]float64, 200)
	for i := range series {
		s := make([]float64, hours)
		for h := range s {
			s[h] = float64((h*7 + i*13) % 2500)
		}
		series[i] = s
	}
	g := buildGrid("bench", nil, series...)
	c := calculator(firstHours(3650))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Compute(g); err != nil {
			b.Fatal(err)
		}
	}
}
