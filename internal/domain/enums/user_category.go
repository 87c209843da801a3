package enums

import "strings"

type UserCategory string

const (
	UserCategoryIndividual UserCategory = "individual"
	UserCategoryOwner      UserCategory = "owner"
	UserCategoryBroker     UserCategory = "broker"
	UserCategoryAgency     UserCategory = "agency"
)

func ParseUserCategory(raw string) (UserCategory, bool) {
	switch UserCategory(strings.ToLower(strings.TrimSpace(raw))) {
	case UserCategoryIndividual:
		return UserCategoryIndividual, true
	case UserCategoryOwner:
		return UserCategoryOwner, true
	case UserCategoryBroker:
		return UserCategoryBroker, true
	case UserCategoryAgency:
		return UserCategoryAgency, true
	default:
		return "", false
	}
}
