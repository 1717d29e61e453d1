package snowflake

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/bits/xerrors"
)

func TestID_Accessors(t *testing.T) {
	raw := DefaultLayout().Pack(Fields{Timestamp: 1500, DatacenterID: 3, WorkerID: 9, Sequence: 42})
	id := FromInt64(raw)

	assert.Equal(t, raw, id.Int64())
	assert.Equal(t, int64(1500), id.Timestamp())
	assert.Equal(t, int64(3), id.DatacenterID())
	assert.Equal(t, int64(9), id.WorkerID())
	assert.Equal(t, int64(42), id.Sequence())
	assert.Equal(t, DefaultEpoch, id.Epoch())
	assert.Equal(t, DefaultEpoch.Add(1500*time.Millisecond), id.Time())
	assert.False(t, id.IsZero())
	assert.True(t, ID{}.IsZero())
}

func TestID_CustomEpoch(t *testing.T) {
	epoch := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	id := newID(DefaultLayout().Pack(Fields{Timestamp: 60_000}), DefaultLayout(), epoch)
	assert.Equal(t, epoch, id.Epoch())
	assert.Equal(t, epoch.Add(time.Minute), id.Time())
}

func TestID_JSON(t *testing.T) {
	type payload struct {
		ID ID `json:"id"`
	}

	id := FromInt64(1537200202186752)
	data, err := json.Marshal(payload{ID: id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1537200202186752"}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, id.Int64(), p.ID.Int64())

	require.NoError(t, json.Unmarshal([]byte(`{"id":1537200202186752}`), &p))
	assert.Equal(t, id.Int64(), p.ID.Int64())

	p = payload{ID: id}
	require.NoError(t, json.Unmarshal([]byte(`{"id":null}`), &p))
	assert.Equal(t, id.Int64(), p.ID.Int64())

	assert.Error(t, json.Unmarshal([]byte(`{"id":"abc"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"id":"-5"}`), &p))
}

func TestID_SQL(t *testing.T) {
	id := FromInt64(192512)
	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(192512), v)

	tests := []struct {
		name    string
		src     any
		want    int64
		wantErr bool
	}{
		{"nil", nil, 0, false},
		{"int64", int64(192512), 192512, false},
		{"bytes", []byte("192513"), 192513, false},
		{"string", "192514", 192514, false},
		{"bad string", "x", 0, true},
		{"float", 1.5, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ID
			err := got.Scan(tt.src)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestID_Format(t *testing.T) {
	id := FromInt64(192513)
	assert.Equal(t, "192513", id.String())
	assert.Equal(t, "192513", fmt.Sprintf("%v", id))
	assert.Equal(t, "192513", fmt.Sprintf("%d", id))
	assert.Equal(t, "2f001", fmt.Sprintf("%x", id))
	assert.Equal(t, "192513{ts=0 dc=1 worker=15 seq=1}", fmt.Sprintf("%+v", id))
}
