package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/storage/inmemory"
)

var _ = Describe("Driver", func() {
	ctx := context.Background()

	It("returns copies of stored values", func() {
		d := inmemory.NewDriver()
		value := []byte("abc")
		Expect(d.Set(ctx, "k", value)).To(Succeed())
		value[0] = 'z'

		v, err := d.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(v)).To(Equal("abc"))
	})

	It("returns NotFoundError for absent keys", func() {
		_, err := inmemory.NewDriver().Get(ctx, "k")
		Expect(err).To(MatchError(storage.NotFoundError{Key: "k"}))
	})

	It("enforces the quota across keys", func() {
		d := inmemory.NewDriver(inmemory.WithQuota(10))
		Expect(d.Set(ctx, "a", make([]byte, 6))).To(Succeed())

		err := d.Set(ctx, "b", make([]byte, 5))
		Expect(err).To(MatchError(storage.QuotaError{Key: "b", Size: 5, Limit: 4}))

		// replacing a key does not count its previous value
		Expect(d.Set(ctx, "a", make([]byte, 10))).To(Succeed())
	})
})
