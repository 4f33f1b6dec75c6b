package querybuilder

import "testing"

type rowModel struct {
	ID     string `db:"id"`
	Score  int    `db:"score"`
	hidden string
	Skip   string `db:"-"`
}

func TestInsertModels(t *testing.T) {
	query, args, err := InsertModels("rows", []rowModel{
		{ID: "a", Score: 1, hidden: "x"},
		{ID: "b", Score: 2, Skip: "y"},
	}, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert models query: %v", err)
	}

	wantQuery := "INSERT INTO rows (id, score) VALUES ($1, $2), ($3, $4) ON CONFLICT (id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != "a" || args[1] != 1 || args[2] != "b" || args[3] != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModelsRequiresRows(t *testing.T) {
	if _, _, err := InsertModels[rowModel]("rows", nil, ""); err == nil {
		t.Fatalf("expected error for empty models")
	}
}
