package domain

const EventNameStatsUpdated = "stats.updated"

type EventStatsUpdated struct {
	Stats UserStats
}

func (EventStatsUpdated) Name() string { return EventNameStatsUpdated }
