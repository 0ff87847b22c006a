package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

func TestParseLinePlace(t *testing.T) {
	cmd, ok, err := parseLine("PLACE 1 BID LIMIT GTC 100 10")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, lob.Command{
		Kind: lob.PlaceCommand, OrderID: 1, Side: lob.Bid,
		OrderType: lob.Limit, TIF: lob.GTC, Price: 100, Quantity: 10,
	}, cmd)
}

func TestParseLineCancel(t *testing.T) {
	cmd, ok, err := parseLine("CANCEL 7")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, lob.Command{Kind: lob.CancelCommand, OrderID: 7}, cmd)
}

func TestParseLineModify(t *testing.T) {
	cmd, ok, err := parseLine("MODIFY 7 105 20")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, lob.Command{
		Kind: lob.ModifyCommand, OrderID: 7, NewPrice: 105, NewQuantity: 20,
	}, cmd)
}

func TestParseLineBlankAndComment(t *testing.T) {
	_, ok, err := parseLine("")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = parseLine("   # a comment")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParseLineRejectsUnknownCommand(t *testing.T) {
	_, _, err := parseLine("FROB 1 2 3")
	require.Error(t, err)
}

func TestParseLineRejectsWrongFieldCount(t *testing.T) {
	_, _, err := parseLine("PLACE 1 BID LIMIT GTC 100")
	require.Error(t, err)
}
