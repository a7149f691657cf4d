package dynamodb_test

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/storage"
	ddb "github.com/papercomputeco/keepsake/pkg/storage/dynamodb"
)

// fakeTable is a single-table DynamoDB stand-in keyed by the PK string.
type fakeTable struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	table string
}

func pkOf(key map[string]types.AttributeValue) string {
	return key["PK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table = *in.TableName
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table = *in.TableName
	f.items[pkOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, pkOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		table  *fakeTable
		driver *ddb.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		table = &fakeTable{items: map[string]map[string]types.AttributeValue{}}
		driver = ddb.NewDriver(table, "keepsake")
	})

	It("returns NotFoundError for absent keys", func() {
		_, err := driver.Get(ctx, "project")
		Expect(err).To(MatchError(storage.NotFoundError{Key: "project"}))
	})

	It("stores, replaces and removes records", func() {
		Expect(driver.Set(ctx, "project", []byte("one"))).To(Succeed())
		Expect(driver.Set(ctx, "project", []byte("two"))).To(Succeed())
		Expect(table.table).To(Equal("keepsake"))
		Expect(table.items).To(HaveKey("RECORD#project"))

		v, err := driver.Get(ctx, "project")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(v)).To(Equal("two"))

		Expect(driver.Remove(ctx, "project")).To(Succeed())
		_, err = driver.Get(ctx, "project")
		Expect(err).To(HaveOccurred())
	})

	It("rejects values over the item size limit", func() {
		err := driver.Set(ctx, "project", make([]byte, ddb.MaxItemBytes+1))
		var quota storage.QuotaError
		Expect(err).To(BeAssignableToTypeOf(quota))
		Expect(table.items).To(BeEmpty())
	})
})
