package hawkers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixture(t *testing.T) {
	centers := Fixture()
	assert.Equal(t, []string{OldAirportRoad, Maxwell, Tekka}, centers.IDs())

	maxwell := centers.MustFind(t, Maxwell)
	assert.Equal(t, "Maxwell Food Centre", maxwell.Name)
	assert.Nil(t, centers.Find("HC404"))

	mappings := centers.Mappings()
	require.Len(t, mappings, 3)
	assert.Equal(t, []string{"03223"}, mappings[Maxwell].BusStops, "unverified stops are not mapped")
	assert.Empty(t, mappings[Tekka].BusStops)
}

func TestFixture_ReturnsCopies(t *testing.T) {
	a := Fixture()
	a[0].Carparks[0].ID = "changed"

	b := Fixture()
	assert.Equal(t, "CP001", b[0].Carparks[0].ID)
}
