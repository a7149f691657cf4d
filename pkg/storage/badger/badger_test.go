package badger_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/storage/badger"
)

var _ = Describe("Driver", func() {
	ctx := context.Background()

	It("requires a path for persistent databases", func() {
		_, err := badger.NewDriver(badger.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("stores, replaces and removes values in memory", func() {
		driver, err := badger.NewDriver(badger.Config{InMemory: true, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		_, err = driver.Get(ctx, "project")
		Expect(err).To(MatchError(storage.NotFoundError{Key: "project"}))

		Expect(driver.Set(ctx, "project", []byte("one"))).To(Succeed())
		Expect(driver.Set(ctx, "project", []byte("two"))).To(Succeed())
		v, err := driver.Get(ctx, "project")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(v)).To(Equal("two"))

		Expect(driver.Remove(ctx, "project")).To(Succeed())
		_, err = driver.Get(ctx, "project")
		Expect(err).To(HaveOccurred())
	})

	It("persists to disk", func() {
		dir := GinkgoT().TempDir()
		driver, err := badger.NewDriver(badger.Config{Path: dir, SyncWrites: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Set(ctx, "project", []byte("saved"))).To(Succeed())
		Expect(driver.Close()).To(Succeed())

		driver, err = badger.NewDriver(badger.Config{Path: dir})
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		v, err := driver.Get(ctx, "project")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(v)).To(Equal("saved"))
	})
})
