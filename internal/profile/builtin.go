package profile

var (
	freeTextColumns = []string{"petName"}

	boolExcludedColumns = []string{
		"franchise",
		"liabilityPremiumInclTax",
		"deductibleLimit",
		"guarantee",
		"claimOutstanding",
	}

	premiumColumns = map[string]Role{
		"healthTax":            RoleNumber,
		"healthBrokerFee":      RoleNumber,
		"healthHthc":           RoleNumber,
		"healthPremiumInclTax": RoleNumber,
	}
)

// cleaning holds the table-level rules shared by every profile.
func cleaning() map[string]TableProfile {
	return map[string]TableProfile{
		"contracts": {
			TrimColumns:           []string{"coverRef"},
			DropColumnsContaining: []string{"death"},
		},
		"receipts": {
			TrimColumns:           []string{"coverRef"},
			DropColumnsContaining: []string{"death"},
		},
		"claims": {
			TrimColumns: []string{"coverRef"},
		},
		"tariffs": {
			ValueMappings: map[string]map[string]string{
				"animal": {"Chat": "cat", "Chien": "dog"},
			},
		},
	}
}

func declared() *Profile {
	tables := cleaning()

	contracts := tables["contracts"]
	contracts.Columns = withPremiums(map[string]Role{
		"coverRef":        RoleKey,
		"coverId":         RoleKey,
		"customerId":      RoleKey,
		"petName":         RoleFreeText,
		"petType":         RoleText,
		"petBirthday":     RoleDate,
		"petUuidType":     RoleText,
		"petUuid":         RoleKey,
		"petSick":         RoleText,
		"coverStartDate":  RoleDate,
		"coverEndDate":    RoleDate,
		"coverRate":       RolePercent,
		"healthLimit":     RoleNumber,
		"preventionLimit": RoleNumber,
		"preventionHthc":  RoleNumber,
	})
	tables["contracts"] = contracts

	receipts := tables["receipts"]
	receipts.Columns = withPremiums(map[string]Role{
		"receiptId":    RoleKey,
		"coverRef":     RoleKey,
		"issuanceDate": RoleDate,
	})
	tables["receipts"] = receipts

	claims := tables["claims"]
	claims.Columns = map[string]Role{
		"claimId":      RoleKey,
		"coverRef":     RoleKey,
		"incidentDate": RoleDate,
		"actDate":      RoleDate,
		"actCategory":  RoleText,
		"actType":      RoleText,
		"actValue":     RoleNumber,
		"claimPaid":    RoleNumber,
	}
	tables["claims"] = claims

	tariffs := tables["tariffs"]
	tariffs.Columns = map[string]Role{
		"animal":            RoleText,
		"age":               RoleNumber,
		"taux":              RolePercent,
		"healthLimit":       RoleNumber,
		"healthHthcMonthly": RoleNumber,
	}
	tables["tariffs"] = tariffs

	return &Profile{
		Name:         "default",
		Tables:       tables,
		FreeText:     freeTextColumns,
		BoolExcluded: boolExcludedColumns,
	}
}

// inferred declares nothing: every column role comes from its values.
func inferred() *Profile {
	return &Profile{
		Name:         "inferred",
		Tables:       cleaning(),
		FreeText:     freeTextColumns,
		BoolExcluded: boolExcludedColumns,
	}
}

func withPremiums(cols map[string]Role) map[string]Role {
	for c, r := range premiumColumns {
		cols[c] = r
	}
	return cols
}
