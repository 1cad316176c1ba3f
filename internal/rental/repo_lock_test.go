package rental

import "testing"

func TestLockOrderSortsByProductID(t *testing.T) {
	items := []DraftItem{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	}

	got := lockOrder(items)

	want := []int64{1, 2, 3}
	for i, id := range want {
		if got[i].ProductID != id {
			t.Fatalf("position %d: got product %d, want %d", i, got[i].ProductID, id)
		}
	}

	// input cart order untouched
	if items[0].ProductID != 3 || items[1].ProductID != 1 || items[2].ProductID != 2 {
		t.Fatalf("input slice mutated: %+v", items)
	}
}
