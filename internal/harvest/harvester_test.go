package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	removed    bool
	editURL    string
	listingURL string
	editErr    error
	listingErr error
}

func (r *fakeRow) Removed() (bool, error) { return r.removed, nil }

func (r *fakeRow) EditURL(time.Duration) (string, error) {
	return r.editURL, r.editErr
}

func (r *fakeRow) ListingURL(time.Duration) (string, error) {
	return r.listingURL, r.listingErr
}

type fakeListing struct {
	rowsByPage map[int][]ListingRow
	emptyPage  int // page index showing the empty-state indicator, -1 for none
	openErr    map[int]error

	opened  []int
	current int
}

func newFakeListing() *fakeListing {
	return &fakeListing{
		rowsByPage: make(map[int][]ListingRow),
		emptyPage:  -1,
		openErr:    make(map[int]error),
	}
}

func (f *fakeListing) Open(_ context.Context, pageIndex int) error {
	f.opened = append(f.opened, pageIndex)
	f.current = pageIndex
	return f.openErr[pageIndex]
}

func (f *fakeListing) Empty() (bool, error) {
	return f.current == f.emptyPage, nil
}

func (f *fakeListing) WaitForRows(time.Duration) error {
	if len(f.rowsByPage[f.current]) == 0 {
		return errors.New("timed out waiting for rows")
	}
	return nil
}

func (f *fakeListing) Rows() ([]ListingRow, error) {
	return f.rowsByPage[f.current], nil
}

func testOptions() Options {
	return Options{RowWait: time.Millisecond, RefWait: time.Millisecond}
}

func TestHarvestMultiplePages(t *testing.T) {
	listing := newFakeListing()
	listing.rowsByPage[0] = []ListingRow{
		&fakeRow{editURL: "https://app.example/editar/produto/1", listingURL: "https://market.example/item/1"},
		&fakeRow{editURL: "https://app.example/editar/produto/2", listingURL: "https://market.example/item/2"},
	}
	listing.rowsByPage[1] = []ListingRow{
		&fakeRow{editURL: "https://app.example/editar/produto/3", listingURL: "https://market.example/item/3"},
	}

	links, err := New(listing, testOptions()).Harvest(context.Background())

	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "https://app.example/editar/produto/1", links[0].EditURL)
	assert.Equal(t, "https://market.example/item/3", links[2].ListingURL)
	// Page 2 was probed and found empty, which ends the walk.
	assert.Equal(t, []int{0, 1, 2}, listing.opened)
}

func TestHarvestEmptyStateOnFirstPage(t *testing.T) {
	listing := newFakeListing()
	listing.emptyPage = 0

	links, err := New(listing, testOptions()).Harvest(context.Background())

	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Equal(t, []int{0}, listing.opened, "no further page requests after empty state")
}

func TestHarvestSkipsRemovedRows(t *testing.T) {
	listing := newFakeListing()
	listing.rowsByPage[0] = []ListingRow{
		&fakeRow{removed: true, editURL: "https://app.example/editar/produto/1", listingURL: "https://market.example/item/1"},
		&fakeRow{editURL: "https://app.example/editar/produto/2", listingURL: "https://market.example/item/2"},
	}

	links, err := New(listing, testOptions()).Harvest(context.Background())

	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://app.example/editar/produto/2", links[0].EditURL)
}

func TestHarvestSkipsRowsWithUnresolvedReferences(t *testing.T) {
	listing := newFakeListing()
	listing.rowsByPage[0] = []ListingRow{
		&fakeRow{editErr: errors.New("timeout"), listingURL: "https://market.example/item/1"},
		&fakeRow{editURL: "https://app.example/editar/produto/2", listingErr: errors.New("timeout")},
		&fakeRow{editURL: "https://app.example/editar/produto/3", listingURL: "https://market.example/item/3"},
	}

	links, err := New(listing, testOptions()).Harvest(context.Background())

	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://app.example/editar/produto/3", links[0].EditURL)
}

func TestHarvestFirstPageUnreachable(t *testing.T) {
	t.Run("no rows ever appear", func(t *testing.T) {
		listing := newFakeListing()

		links, err := New(listing, testOptions()).Harvest(context.Background())

		assert.Nil(t, links)
		assert.ErrorIs(t, err, ErrListingUnreachable)
	})

	t.Run("navigation fails", func(t *testing.T) {
		listing := newFakeListing()
		listing.openErr[0] = errors.New("net::ERR_CONNECTION_REFUSED")

		links, err := New(listing, testOptions()).Harvest(context.Background())

		assert.Nil(t, links)
		assert.ErrorIs(t, err, ErrListingUnreachable)
	})
}

func TestHarvestLaterPageTimeoutIsNormalTermination(t *testing.T) {
	listing := newFakeListing()
	listing.rowsByPage[0] = []ListingRow{
		&fakeRow{editURL: "https://app.example/editar/produto/1", listingURL: "https://market.example/item/1"},
	}
	// Page 1 never shows a row; pagination has no explicit last-page marker.

	links, err := New(listing, testOptions()).Harvest(context.Background())

	require.NoError(t, err)
	assert.Len(t, links, 1)
}
