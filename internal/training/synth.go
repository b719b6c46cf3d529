package training

import (
	"math"
	"math/rand"

	"github.com/mind-engage/savings-forecast/internal/model"
	"github.com/mind-engage/savings-forecast/internal/profile"
)

var (
	synthOccupations = []string{"Professional", "Retired", "Self_Employed", "Student"}
	synthCityTiers   = []string{"Tier_1", "Tier_2", "Tier_3"}
)

// Synthetic builds a dataset with the production column layout: the request
// features, the six modelled savings columns and two unmodelled ones. Savings
// are a noisy linear share of each category's spend.
func Synthetic(rows int, seed int64) *model.Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := model.NewDataset()
	ds.Rows = rows

	num := func(name string) []float64 {
		if _, ok := ds.Numeric[name]; !ok {
			ds.Columns = append(ds.Columns, name)
			ds.Numeric[name] = make([]float64, rows)
		}
		return ds.Numeric[name]
	}
	cat := func(name string) []string {
		if _, ok := ds.Categorical[name]; !ok {
			ds.Columns = append(ds.Columns, name)
			ds.Categorical[name] = make([]string, rows)
		}
		return ds.Categorical[name]
	}

	income, age, deps := num("Income"), num("Age"), num("Dependents")
	occ, tier := cat("Occupation"), cat("City_Tier")
	share := map[string]float64{
		"Rent": 0.22, "Loan_Repayment": 0.05, "Insurance": 0.03,
		"Groceries": 0.12, "Transport": 0.05, "Eating_Out": 0.04,
		"Entertainment": 0.03, "Utilities": 0.05, "Healthcare": 0.02,
		"Education": 0.03, "Miscellaneous": 0.01,
	}
	expenseOrder := []string{
		"Rent", "Loan_Repayment", "Insurance", "Groceries", "Transport", "Eating_Out",
		"Entertainment", "Utilities", "Healthcare", "Education", "Miscellaneous",
	}
	expenses := map[string][]float64{}
	for _, e := range expenseOrder {
		expenses[e] = num(e)
	}
	desiredPct, desired, disposable := num("Desired_Savings_Percentage"), num("Desired_Savings"), num("Disposable_Income")

	savingsCats := append(append([]string{}, profile.ExpenseCategories...), "Healthcare", "Education")
	savings := make([][]float64, len(savingsCats))
	for k, c := range savingsCats {
		savings[k] = num(profile.TargetColumn(c))
	}

	for i := 0; i < rows; i++ {
		income[i] = math.Round(20000 + rng.Float64()*100000)
		age[i] = float64(18 + rng.Intn(50))
		deps[i] = float64(rng.Intn(5))
		occ[i] = synthOccupations[rng.Intn(len(synthOccupations))]
		tier[i] = synthCityTiers[rng.Intn(len(synthCityTiers))]

		var spent float64
		for _, e := range expenseOrder {
			v := math.Round(income[i] * share[e] * (0.6 + 0.8*rng.Float64()))
			expenses[e][i] = v
			spent += v
		}
		desiredPct[i] = float64(5 + rng.Intn(20))
		desired[i] = math.Round(income[i] * desiredPct[i] / 100)
		disposable[i] = math.Round(income[i] - spent)

		for k, c := range savingsCats {
			base := expenses[c][i] * (0.08 + 0.02*deps[i]/4)
			savings[k][i] = math.Max(0, math.Round((base+rng.NormFloat64()*base*0.05)*100)/100)
		}
	}
	return ds
}
