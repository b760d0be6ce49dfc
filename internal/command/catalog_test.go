package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogListsEveryOperationInOrder(t *testing.T) {
	names := make([]string, 0, len(Catalog()))
	for _, desc := range Catalog() {
		names = append(names, desc.Name)
		assert.NotEmpty(t, desc.Description, desc.Name)
	}
	assert.Equal(t, []string{
		OpStart, OpStop, OpAddJSONRoute, OpAddTextRoute, OpAddStaticDir, OpGetPort, OpGetURL, OpIsRunning,
	}, names)
}

func TestLookupReturnsParams(t *testing.T) {
	desc, ok := Lookup(OpAddTextRoute)
	require.True(t, ok)
	require.Len(t, desc.Params, 4)
	assert.Equal(t, "contentType", desc.Params[3].Name)
	assert.False(t, desc.Params[3].Required)
	assert.Equal(t, "text/plain", desc.Params[3].Default)

	_, ok = Lookup("missing")
	assert.False(t, ok)
}

func TestLookupReturnsCopies(t *testing.T) {
	desc, ok := Lookup(OpStart)
	require.True(t, ok)
	desc.Params[0].Name = "mutated"

	again, _ := Lookup(OpStart)
	assert.Equal(t, "port", again.Params[0].Name)
}

func TestAccessorsAreReadOnly(t *testing.T) {
	for _, name := range []string{OpGetPort, OpGetURL, OpIsRunning} {
		desc, ok := Lookup(name)
		require.True(t, ok)
		assert.True(t, desc.ReadOnly, name)
	}
	desc, _ := Lookup(OpStart)
	assert.False(t, desc.ReadOnly)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := newRegistry(nil)
	require.NoError(t, r.register(Descriptor{Name: "x"}))
	assert.Error(t, r.register(Descriptor{Name: "x"}))
	assert.Error(t, r.register(Descriptor{Name: " "}))
}
