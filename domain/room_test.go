package domain

import (
	"chatrooms/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRoom_ValidatesLocation(t *testing.T) {
	req := require.New(t)

	room, err := NewRoom("  Cebu Talk ", "Central Visayas", "Cebu", "", "u1")
	req.NoError(err)
	req.Equal("Cebu Talk", room.Name)
	req.Equal("u1", room.CreatorID)

	_, err = NewRoom("Cebu Talk", "Central Visayas", "Manila", "", "u1")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = NewRoom("Cebu Talk", "Atlantis", "Cebu", "", "u1")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = NewRoom("   ", "Central Visayas", "Cebu", "", "u1")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = NewRoom("Cebu Talk", "Central Visayas", "Cebu", "", "")
	req.ErrorIs(err, errors.ErrValidation)
}

func TestRoom_Rename_OnlyCreator(t *testing.T) {
	req := require.New(t)
	room := Room{ID: "r1", Name: "Old", CreatorID: "u1"}

	_, err := room.Rename("u2", "New")
	req.ErrorIs(err, errors.ErrForbidden)

	_, err = room.Rename("u1", " ")
	req.ErrorIs(err, errors.ErrValidation)

	renamed, err := room.Rename("u1", "New")
	req.NoError(err)
	req.Equal("New", renamed.Name)
	req.Equal("Old", room.Name)
}

func TestRoomFilter_Match(t *testing.T) {
	req := require.New(t)
	cebu := Room{Region: "Central Visayas", Province: "Cebu"}
	bohol := Room{Region: "Central Visayas", Province: "Bohol"}

	req.True(RoomFilter{}.Match(cebu))
	req.True(RoomFilter{Region: "Central Visayas"}.Match(bohol))
	req.False(RoomFilter{Region: "Central Visayas", Province: "Cebu"}.Match(bohol))
	req.False(RoomFilter{Region: "Metro Manila"}.Match(cebu))
}

func TestRegions_Sorted(t *testing.T) {
	req := require.New(t)
	names := Regions()
	req.Len(names, 6)
	req.IsNonDecreasing(names)
	req.Contains(Provinces("Central Visayas"), "Cebu")
	req.Empty(Provinces("Atlantis"))
}
