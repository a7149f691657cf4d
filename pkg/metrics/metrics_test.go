package metrics_test

import (
	"io"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/keepsake/pkg/metrics"
)

var _ = Describe("Recorder", func() {
	It("counts operations by result", func() {
		r := metrics.New()
		r.Operation("save", metrics.ResultSuccess, 10*time.Millisecond)
		r.Operation("save", metrics.ResultSuccess, 10*time.Millisecond)
		r.Operation("load", metrics.ResultRejected, time.Millisecond)

		Expect(testutil.GatherAndCount(r.Registry(), "keepsake_operations_total")).To(Equal(2))
	})

	It("records restore outcomes", func() {
		r := metrics.New()
		r.Restore(2, 1, 1, 3)
		r.SnapshotSize(2048)

		Expect(testutil.GatherAndCount(r.Registry(), "keepsake_restore_relationships_total")).To(Equal(3))
		Expect(testutil.GatherAndCount(r.Registry(), "keepsake_snapshot_bytes")).To(Equal(1))
	})

	It("serves the exposition format", func() {
		r := metrics.New()
		r.Operation("clear", metrics.ResultSuccess, 0)

		rec := httptest.NewRecorder()
		r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`keepsake_operations_total{operation="clear",result="success"} 1`))
	})

	It("tolerates a nil recorder", func() {
		var r *metrics.Recorder
		Expect(func() {
			r.Operation("save", metrics.ResultError, 0)
			r.Restore(1, 1, 1, 1)
			r.SnapshotSize(1)
		}).NotTo(Panic())
		Expect(r.Registry()).To(BeNil())
	})
})
