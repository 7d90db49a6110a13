package boot

import (
	"log"

	"qrpass/src/db"
	"qrpass/src/lib"
	"qrpass/src/models"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Ticket{},
		&models.TrailLog{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}
