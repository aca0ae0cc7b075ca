package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type fakeObjects struct {
	puts map[string][]byte
}

func (f *fakeObjects) Put(_ context.Context, key, _ string, data []byte) error {
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = data
	return nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string) (string, time.Time, error) {
	return "https://files.example.com/" + key + "?sig=1", time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC), nil
}

func TestCustomerService_CreateNormalizes(t *testing.T) {
	svc := NewCustomerService(newFakeCustomers(), nil, 0)

	c, err := svc.Create(context.Background(), 1, &CustomerRequest{
		FirstName: " Ada ",
		Email:     " ADA@Example.com",
		Tags:      []string{"vip", " vip ", "", "beta"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, []string{"vip", "beta"}, []string(c.Tags))
}

func TestCustomerService_CreateDuplicateEmail(t *testing.T) {
	customers := newFakeCustomers(&models.Customer{ID: 1, BusinessID: 1, Email: "ada@example.com"})
	svc := NewCustomerService(customers, nil, 0)

	_, err := svc.Create(context.Background(), 1, &CustomerRequest{Email: "ada@example.com"})
	assert.ErrorIs(t, err, utils.ErrDuplicate)

	_, err = svc.Create(context.Background(), 2, &CustomerRequest{Email: "ada@example.com"})
	assert.NoError(t, err, "emails are unique per business only")
}

func TestCustomerService_Import(t *testing.T) {
	customers := newFakeCustomers(&models.Customer{ID: 1, BusinessID: 1, Email: "taken@example.com"})
	svc := NewCustomerService(customers, nil, 0)

	data := "email,first name,tags\n" +
		"ada@example.com,Ada,vip;beta\n" +
		"not-an-email,Bob,\n" +
		"ADA@example.com,Ada again,\n" +
		"taken@example.com,Old,\n" +
		"alan@example.com,Alan,\n"

	res, err := svc.Import(context.Background(), 1, "customers.csv", strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, "email")
	assert.Equal(t, "duplicate email in file", res.Errors[1].Message)
	assert.Equal(t, "email already exists", res.Errors[2].Message)

	all, _ := customers.All(context.Background(), 1)
	assert.Len(t, all, 3)
}

func TestCustomerService_ImportRejectsUnknownFormat(t *testing.T) {
	svc := NewCustomerService(newFakeCustomers(), nil, 0)
	_, err := svc.Import(context.Background(), 1, "customers.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, utils.ErrUnsupportedFile)
}

func TestCustomerService_ExportUnavailableWithoutStorage(t *testing.T) {
	svc := NewCustomerService(newFakeCustomers(), nil, 0)
	_, err := svc.Export(context.Background(), 1)
	assert.ErrorIs(t, err, utils.ErrUnavailable)
}

func TestCustomerService_Export(t *testing.T) {
	customers := newFakeCustomers(
		&models.Customer{ID: 1, BusinessID: 1, FirstName: "Ada", Email: "ada@example.com", Tags: []string{"vip"}},
		&models.Customer{ID: 2, BusinessID: 1, FirstName: "Alan", Email: "alan@example.com"},
		&models.Customer{ID: 3, BusinessID: 2, Email: "other@example.com"},
	)
	objects := &fakeObjects{}
	svc := NewCustomerService(customers, objects, 0)

	link, err := svc.Export(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, link.Rows)
	assert.True(t, strings.HasPrefix(link.Key, "exports/1/customers-"))
	assert.Contains(t, link.URL, link.Key)

	body := string(objects.puts[link.Key])
	assert.Contains(t, body, "ada@example.com")
	assert.Contains(t, body, "alan@example.com")
	assert.NotContains(t, body, "other@example.com")
}
