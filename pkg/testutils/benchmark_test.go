package testutils_test

import (
	"context"
	"testing"
	"time"

	"github.com/web3ekko/ekko-ce/explainer/pkg/testutils"
)

func BenchmarkTestEnvironmentSetup(b *testing.B) {
	if testing.Short() {
		b.Skip("skipping container benchmark in short mode")
	}
	start := time.Now()
	ctx := context.Background()

	for i := 0; i < b.N; i++ {
		if _, err := testutils.GetTestEnvironment(ctx); err != nil {
			b.Fatalf("Failed to get test environment: %v", err)
		}
	}

	b.ReportMetric(float64(time.Since(start).Milliseconds())/float64(b.N), "ms/op")
}
