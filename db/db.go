package db

import (
	"log"

	mysqlconf "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var Instance *gorm.DB

// Init opens MySQL if mysqlDSN is set, otherwise PostgreSQL if postgresDSN is set,
// otherwise the SQLite file.
func Init(mysqlDSN, postgresDSN, sqliteFile string) {
	var dialector gorm.Dialector
	switch {
	case mysqlDSN != "":
		cfg, err := mysqlconf.ParseDSN(mysqlDSN)
		if err != nil {
			log.Fatalf("Invalid MYSQL_DSN: %v", err)
		}
		log.Printf("Using MySQL database %q at %s", cfg.DBName, cfg.Addr)
		dialector = mysql.Open(mysqlDSN)
	case postgresDSN != "":
		log.Print("Using PostgreSQL database")
		dialector = postgres.Open(postgresDSN)
	default:
		log.Printf("Using SQLite database %s", sqliteFile)
		dialector = sqlite.Open(sqliteFile)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil || db == nil {
		panic(err)
	}
	Instance = db
}
