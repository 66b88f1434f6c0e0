package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

var listFixture = []Order{
	{ID: "A1B2", UserName: "Amira Ben Salah", UserPhone: "+216 22 333 444", Status: StatusPending},
	{ID: "c3d4", UserName: "Karim Trabelsi", UserPhone: "98765432", Status: StatusCompleted},
	{ID: "e5f6", UserName: "", Status: StatusProcessing},
	{ID: "g7h8", UserName: "amira jaziri", Status: StatusCancelled},
}

func ids(orders []Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		tab   string
		query string
		want  []string
	}{
		{name: "all", tab: "all", want: []string{"A1B2", "c3d4", "e5f6", "g7h8"}},
		{name: "empty tab", tab: "", want: []string{"A1B2", "c3d4", "e5f6", "g7h8"}},
		{name: "pending tab", tab: "pending", want: []string{"A1B2"}},
		{name: "name case-insensitive", query: "AMIRA", want: []string{"A1B2", "g7h8"}},
		{name: "id case-insensitive", query: "c3D4", want: []string{"c3d4"}},
		{name: "phone substring", query: "333", want: []string{"A1B2"}},
		{name: "tab and query", tab: "cancelled", query: "amira", want: []string{"g7h8"}},
		{name: "no match", query: "zzz", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.tab, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(f.Apply(listFixture)))
		})
	}
}

func TestParseFilter_UnknownTab(t *testing.T) {
	_, err := ParseFilter("shipped", "")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCountByStatus(t *testing.T) {
	counts := CountByStatus(listFixture)
	assert.Equal(t, 1, counts[StatusPending])
	assert.Equal(t, 1, counts[StatusProcessing])
	assert.Equal(t, 1, counts[StatusCompleted])
	assert.Equal(t, 1, counts[StatusCancelled])

	empty := CountByStatus(nil)
	assert.Len(t, empty, len(Statuses))
}

func TestUpdate_Diff(t *testing.T) {
	o := Order{ID: "o1", Status: StatusPending, DeliveryDate: "2025-06-20", DeliveryTime: "10:00 - 12:00"}

	u := Update{
		Status:       ptr(StatusCompleted),
		DeliveryDate: ptr("2025-06-20"),
		DeliveryTime: ptr("14:00 - 16:00"),
	}.Diff(o)

	require.NotNil(t, u.Status)
	assert.Equal(t, StatusCompleted, *u.Status)
	assert.Nil(t, u.DeliveryDate)
	require.NotNil(t, u.DeliveryTime)
	assert.Equal(t, "14:00 - 16:00", *u.DeliveryTime)

	assert.True(t, Update{Status: ptr(StatusPending)}.Diff(o).Empty())
}

func TestUpdate_Validate(t *testing.T) {
	require.NoError(t, Update{Status: ptr(StatusProcessing), DeliveryDate: ptr("2025-06-20")}.Validate())
	require.NoError(t, Update{DeliveryDate: ptr("")}.Validate())
	require.ErrorIs(t, Update{Status: ptr(Status("PENDING"))}.Validate(), ErrInvalidStatus)
	require.Error(t, Update{DeliveryDate: ptr("20/06/2025")}.Validate())
}
