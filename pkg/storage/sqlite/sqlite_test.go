package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/storage/sqlite"
)

var _ = Describe("SQLiteDriver", func() {
	var (
		driver *sqlite.SQLiteDriver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewSQLiteDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewSQLiteDriver", func() {
		It("creates a driver with file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "test.db")

			s, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			// Verify file was created
			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps records across reopen", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

			s, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Set(ctx, "project", []byte("saved"))).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			v, err := s.Get(ctx, "project")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(v)).To(Equal("saved"))
		})
	})

	Describe("Get, Set and Remove", func() {
		It("returns NotFoundError for absent keys", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.NotFoundError{Key: "missing"}))
		})

		It("upserts values", func() {
			Expect(driver.Set(ctx, "project", []byte("one"))).To(Succeed())
			Expect(driver.Set(ctx, "project", []byte("two"))).To(Succeed())

			v, err := driver.Get(ctx, "project")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(v)).To(Equal("two"))
		})

		It("removes values and tolerates absent keys", func() {
			Expect(driver.Set(ctx, "project", []byte("one"))).To(Succeed())
			Expect(driver.Remove(ctx, "project")).To(Succeed())
			Expect(driver.Remove(ctx, "project")).To(Succeed())

			_, err := driver.Get(ctx, "project")
			Expect(err).To(HaveOccurred())
		})
	})
})
