package service_test

import (
	"github.com/okian/vaxdash/internal/adapters/repository"
	"github.com/okian/vaxdash/internal/domain/model"
)

var (
	day    = model.NewDate(2022, 3, 23)
	noData = model.NewDate(2021, 1, 5)
)

func rec(d model.Date, week int, loc, state string, pop int64, m map[string]float64) model.Record {
	return model.Record{Date: d, Week: week, Location: loc, State: state, Population: pop, Metrics: m}
}

func snapshotTable() *model.Table {
	return &model.Table{Name: model.DatasetSnapshot, Records: []model.Record{
		rec(day, 12, "CA", "California", 100, map[string]float64{"covid_rate": 0.1, "avg_vaccine": 5}),
		rec(day, 12, "PR", "Puerto Rico", 50, map[string]float64{"covid_rate": 0.2, "avg_vaccine": 1}),
		rec(day, 12, "TX", "Texas", 0, map[string]float64{"avg_vaccine": 3}),
		rec(day.AddDays(-7), 11, "CA", "California", 100, map[string]float64{"covid_rate": 0.09}),
	}}
}

func weeklyTable() *model.Table {
	return &model.Table{Name: model.DatasetWeekly, Records: []model.Record{
		rec(model.NewDate(2022, 3, 14), 11, "", "", 0, map[string]float64{"new_case": 7, "All": 100, "Pfizer": 60}),
		rec(model.NewDate(2022, 3, 21), 12, "", "", 0, map[string]float64{"new_case": 10, "All": 50, "Pfizer": 30}),
		rec(model.NewDate(2022, 3, 23), 12, "", "", 0, map[string]float64{"new_case": 5, "All": 30, "Pfizer": 20}),
		rec(model.NewDate(2022, 3, 28), 13, "", "", 0, map[string]float64{"new_case": 4, "All": 20, "Pfizer": 10}),
	}}
}

func nationalTable() *model.Table {
	return &model.Table{Name: model.DatasetNational, Records: []model.Record{
		rec(day, 12, "US", "United States", 1000, map[string]float64{
			"tot_case": 250, "Dose1_Complete": 800, "Series_Complete": 700,
		}),
	}}
}

func rankingTable() *model.Table {
	return &model.Table{Name: model.DatasetRanking, Records: []model.Record{
		rec(day, 12, "A", "Alpha", 100, map[string]float64{
			"Series_Complete_Pop_Pct": 60, "covid_rate": 0.3,
			"Pfizer_num": 30, "Moderna_num": 20, "Janssen_num": 10,
			"age>=12": 70, "age>=18": 75, "age>=65": 90,
		}),
		rec(day, 12, "B", "Beta", 200, map[string]float64{"covid_rate": 0.2}),
		rec(day, 12, "C", "Gamma", 0, map[string]float64{
			"Series_Complete_Pop_Pct": 70, "covid_rate": 0.1,
			"Pfizer_num": 5,
		}),
		rec(day, 12, "US", "United States", 1000, map[string]float64{"Series_Complete_Pop_Pct": 80, "covid_rate": 0.25}),
	}}
}

func fixtureStore() *repository.MemoryStore {
	return repository.NewMemoryStore(snapshotTable(), weeklyTable(), nationalTable(), rankingTable())
}
