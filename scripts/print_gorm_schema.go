package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/cydxin/community-sdk/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 打印 GORM 解析出的表结构（列名 + 方言类型 + 索引），不连接数据库
//
// Usage:
//
//	go run ./scripts/print_gorm_schema.go -driver mysql -prefix cm_
func main() {
	driver := flag.String("driver", "mysql", "mysql | postgres")
	prefix := flag.String("prefix", "cm_", "table prefix")
	flag.Parse()

	models.SetTablePrefix(*prefix)

	var dialector gorm.Dialector
	switch *driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{DSN: "dry:run@tcp(127.0.0.1:3306)/dry", SkipInitializeWithVersion: true})
	case "postgres":
		dialector = postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=dry dbname=dry"})
	default:
		log.Fatalf("unsupported driver %q", *driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		log.Fatalf("open %s: %v", *driver, err)
	}

	for _, m := range models.All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			log.Fatalf("parse %T: %v", m, err)
		}
		fmt.Printf("=== %s ===\n", stmt.Schema.Table)
		for _, f := range stmt.Schema.Fields {
			if f.DBName == "" {
				continue
			}
			fmt.Printf("%-24s %s\n", f.DBName, db.Dialector.DataTypeOf(f))
		}
		for _, idx := range stmt.Schema.ParseIndexes() {
			cols := make([]string, 0, len(idx.Fields))
			for _, f := range idx.Fields {
				cols = append(cols, f.DBName)
			}
			fmt.Printf("index %-18s %s %v\n", idx.Name, idx.Class, cols)
		}
		fmt.Println()
	}
}
