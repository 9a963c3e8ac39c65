package loader

import (
	"strconv"
	"strings"
)

// maxParams is the Postgres bind parameter limit per statement.
const maxParams = 65535

// insertStatements renders rows as multi-row INSERTs, split so no statement
// exceeds maxParams. casts is parallel to columns; an empty entry means no cast.
func insertStatements(table string, columns, casts []string, rows [][]any, suffix string) []Statement {
	if len(rows) == 0 || len(columns) == 0 {
		return nil
	}
	perStmt := maxParams / len(columns)

	var head strings.Builder
	head.WriteString("INSERT INTO ")
	head.WriteString(table)
	head.WriteString(" (")
	head.WriteString(strings.Join(columns, ", "))
	head.WriteString(") VALUES ")

	stmts := make([]Statement, 0, (len(rows)+perStmt-1)/perStmt)
	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))
		chunk := rows[start:end]

		var sb strings.Builder
		sb.WriteString(head.String())
		args := make([]any, 0, len(chunk)*len(columns))
		n := 1
		for i, row := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j := range columns {
				if j > 0 {
					sb.WriteString(", ")
				}
				sb.WriteByte('$')
				sb.WriteString(strconv.Itoa(n))
				if casts[j] != "" {
					sb.WriteString("::")
					sb.WriteString(casts[j])
				}
				n++
			}
			sb.WriteByte(')')
			args = append(args, row...)
		}
		if suffix != "" {
			sb.WriteByte(' ')
			sb.WriteString(suffix)
		}
		stmts = append(stmts, Statement{SQL: sb.String(), Args: args})
	}
	return stmts
}

func truncateSQL(tables []string) string {
	return "TRUNCATE " + strings.Join(tables, ", ") + " CASCADE"
}

func triggerSQL(t Trigger, enable bool) string {
	action := "DISABLE"
	if enable {
		action = "ENABLE"
	}
	return "ALTER TABLE " + t.Table + " " + action + " TRIGGER " + t.Name
}

func rollupSQL(climbsTable string) string {
	return "UPDATE " + areasTable + " a SET total_climbs = COALESCE((" +
		"SELECT COUNT(*) FROM " + climbsTable + " c JOIN " + areasTable + " leaf ON c.area_id = leaf.id " +
		"WHERE leaf.path <@ a.path), 0)"
}
