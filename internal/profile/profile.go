// Package profile defines the financial profile accepted by the prediction
// endpoint and the column vocabulary shared with training.
package profile

import "strings"

// UserProfile is the request body of POST /predict.
type UserProfile struct {
	Age                      int     `json:"Age"`
	CityTier                 string  `json:"City_Tier"`
	Dependents               int     `json:"Dependents"`
	DesiredSavings           float64 `json:"Desired_Savings"`
	DesiredSavingsPercentage float64 `json:"Desired_Savings_Percentage"`
	DisposableIncome         float64 `json:"Disposable_Income"`
	EatingOut                float64 `json:"Eating_Out"`
	Education                float64 `json:"Education"`
	Entertainment            float64 `json:"Entertainment"`
	Groceries                float64 `json:"Groceries"`
	Healthcare               float64 `json:"Healthcare"`
	Income                   float64 `json:"Income"`
	Insurance                float64 `json:"Insurance"`
	LoanRepayment            float64 `json:"Loan_Repayment"`
	Miscellaneous            float64 `json:"Miscellaneous"`
	Occupation               string  `json:"Occupation"`
	Rent                     float64 `json:"Rent"`
	Transport                float64 `json:"Transport"`
	Utilities                float64 `json:"Utilities"`
}

// Fields flattens the profile into column name → value.
func (p UserProfile) Fields() map[string]any {
	return map[string]any{
		"Age":                        p.Age,
		"City_Tier":                  p.CityTier,
		"Dependents":                 p.Dependents,
		"Desired_Savings":            p.DesiredSavings,
		"Desired_Savings_Percentage": p.DesiredSavingsPercentage,
		"Disposable_Income":          p.DisposableIncome,
		"Eating_Out":                 p.EatingOut,
		"Education":                  p.Education,
		"Entertainment":              p.Entertainment,
		"Groceries":                  p.Groceries,
		"Healthcare":                 p.Healthcare,
		"Income":                     p.Income,
		"Insurance":                  p.Insurance,
		"Loan_Repayment":             p.LoanRepayment,
		"Miscellaneous":              p.Miscellaneous,
		"Occupation":                 p.Occupation,
		"Rent":                       p.Rent,
		"Transport":                  p.Transport,
		"Utilities":                  p.Utilities,
	}
}

// Expense categories the model predicts savings for, in output order.
var ExpenseCategories = []string{
	"Groceries", "Transport", "Eating_Out",
	"Entertainment", "Utilities", "Miscellaneous",
}

// CategoricalFeatures are one-hot encoded; every other feature is scaled.
var CategoricalFeatures = []string{"Occupation", "City_Tier"}

const (
	TargetPrefix = "Potential_Savings_"
	TotalKey     = "Total_Predicted_Savings"
)

// TargetColumn names the savings column for an expense category.
func TargetColumn(category string) string { return TargetPrefix + category }

// TargetColumns returns the six savings columns in output order.
func TargetColumns() []string {
	out := make([]string, len(ExpenseCategories))
	for i, c := range ExpenseCategories {
		out[i] = TargetColumn(c)
	}
	return out
}

// IsSavingsColumn reports whether a dataset column is any Potential_Savings_*
// column, used or not.
func IsSavingsColumn(name string) bool { return strings.HasPrefix(name, TargetPrefix) }

// Sample is the reference profile used for smoke tests after training.
func Sample() UserProfile {
	return UserProfile{
		Income:                   50000,
		Age:                      35,
		Dependents:               2,
		Occupation:               "Professional",
		CityTier:                 "Tier_2",
		Rent:                     12000,
		LoanRepayment:            0,
		Insurance:                1500,
		Groceries:                6000,
		Transport:                2000,
		EatingOut:                1500,
		Entertainment:            1000,
		Utilities:                2500,
		Healthcare:               500,
		Education:                0,
		Miscellaneous:            300,
		DesiredSavingsPercentage: 10,
		DesiredSavings:           5000,
		DisposableIncome:         15000,
	}
}
