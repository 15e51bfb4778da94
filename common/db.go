package common

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// goqu 查询辅助层：报表、审计等旁路读写用它拼 SQL，
// 投注与结算热路径仍走各 model 内的原生 SQL

var (
	dialect = g.Dialect("mysql")
)

// QueryArg 描述一次 SELECT 的全部要素
type QueryArg struct {
	Db      *sqlx.DB                // db connection
	Table   string                  // table
	Fields  []interface{}           // query fields
	Ex      []exp.Expression        // where conditions
	Order   []exp.OrderedExpression // order conditions
	GroupBy []interface{}           // group by fields
	Offset  uint                    // offset
	Limit   uint                    // limit
}

// EnumFields 通过 db tag 枚举结构体字段，生成 SELECT 字段列表
func EnumFields(obj interface{}) []interface{} {

	rt := reflect.TypeOf(obj)
	if rt.Kind() != reflect.Struct {
		return nil
	}

	var fields []interface{}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if field := f.Tag.Get("db"); field != "" && field != "-" {
			fields = append(fields, field)
		}
	}

	return fields
}

// CountInfo 统计满足条件的行数
func CountInfo(db *sqlx.DB, table, name string, ex ...exp.Expression) (int64, error) {

	var count int64
	query, _, _ := dialect.Select(g.COUNT(name)).From(table).Where(ex...).ToSQL()
	err := db.Get(&count, query)
	if err != nil {
		Printf("count %s err: %s\n", table, err.Error())
	}

	return count, err
}

// SumInfo 聚合求和，空集返回 0
func SumInfo(db *sqlx.DB, table, name string, ex ...exp.Expression) (float64, error) {

	var sum float64
	query, _, _ := dialect.Select(g.COALESCE(g.SUM(name), 0)).From(table).Where(ex...).ToSQL()
	err := db.Get(&sum, query)
	if err != nil {
		Printf("sum %s err: %s\n", table, err.Error())
	}

	return sum, err
}

// InsertCtx：在 sqlx.ExtContext 上执行 INSERT，保持 goqu 生成的占位符与 args
func InsertCtx(ctx context.Context, exec sqlx.ExtContext, table string, rows ...interface{}) (sql.Result, error) {
	query, args, err := dialect.Insert(table).Rows(rows...).ToSQL()
	if err != nil {
		return nil, err
	}
	return exec.ExecContext(ctx, query, args...)
}

// UpdateCtx：在 sqlx.ExtContext 上执行 UPDATE
func UpdateCtx(ctx context.Context, exec sqlx.ExtContext, table string, record g.Record, ex ...g.Expression) (sql.Result, error) {
	query, args, err := dialect.Update(table).Set(record).Where(ex...).ToSQL()
	if err != nil {
		return nil, err
	}
	return exec.ExecContext(ctx, query, args...)
}

// SelectAllCtx：查询多条记录（使用 *sqlx.DB）
func SelectAllCtx(ctx context.Context, data interface{}, args QueryArg) error {
	if args.Db == nil {
		return fmt.Errorf("invalid db")
	}
	if args.Table == "" {
		return fmt.Errorf("invalid table")
	}
	if len(args.Fields) == 0 {
		return fmt.Errorf("invalid fields")
	}
	ds := dialect.Select(args.Fields...).From(args.Table)
	if len(args.Ex) > 0 {
		ds = ds.Where(args.Ex...)
	}
	if len(args.GroupBy) > 0 {
		ds = ds.GroupBy(args.GroupBy...)
	}
	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}
	if args.Offset > 0 {
		ds = ds.Offset(args.Offset)
	}
	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}
	query, qargs, _ := ds.ToSQL()
	return args.Db.SelectContext(ctx, data, query, qargs...)
}
