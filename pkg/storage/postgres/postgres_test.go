package postgres_test

import (
	"context"
	"fmt"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/storage/postgres"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("KEEPSAKE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("KEEPSAKE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		driver *postgres.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		driver, err = postgres.NewDriver(ctx, dsn)
		Expect(err).NotTo(HaveOccurred())

		// Clean all records before each test for isolation.
		_, err = driver.DB.ExecContext(ctx, "DELETE FROM keepsake_records")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("returns an error for invalid connection string", func() {
			_, err := postgres.NewDriver(context.Background(), "host=invalid port=9999 user=bad dbname=bad sslmode=disable connect_timeout=1")
			Expect(err).To(HaveOccurred())
			fmt.Fprintf(GinkgoWriter, "expected error: %v\n", err)
		})
	})

	Describe("Get, Set and Remove", func() {
		It("upserts and reads values", func() {
			Expect(driver.Set(ctx, "project", []byte("one"))).To(Succeed())
			Expect(driver.Set(ctx, "project", []byte("two"))).To(Succeed())

			v, err := driver.Get(ctx, "project")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(v)).To(Equal("two"))
		})

		It("removes values", func() {
			Expect(driver.Set(ctx, "project", []byte("one"))).To(Succeed())
			Expect(driver.Remove(ctx, "project")).To(Succeed())

			_, err := driver.Get(ctx, "project")
			Expect(err).To(MatchError(storage.NotFoundError{Key: "project"}))
		})
	})
})
