package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItinerary_DateOfDay(t *testing.T) {
	it := &Itinerary{StartDate: "2026-02-27", Days: 3}

	d, err := it.DateOfDay(3)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", d.Format(dateLayout))

	_, err = it.DateOfDay(0)
	assert.Error(t, err)
	_, err = it.DateOfDay(4)
	assert.Error(t, err)

	_, err = (&Itinerary{StartDate: "soon", Days: 1}).DateOfDay(1)
	assert.Error(t, err)
}
