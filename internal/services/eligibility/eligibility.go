// Package eligibility реализует валидатор запросов на выдачу оружия.
// Все проверки чистые: валидатор работает по согласованному снапшоту
// состояния и ничего не мутирует. Проверки идут по порядку и
// останавливаются на первом отказе.
package eligibility

import (
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

// Validate решает, допустима ли выдача оружия weapon сотруднику target
// по запросу requester. heldTypes — типы оружия в активных выдачах target.
// Возвращает nil (разрешено) либо одну из доменных ошибок:
//
//  1. models.ErrAdminNotAllowed — инициатор или получатель администратор;
//  2. models.ErrWeaponNotAvailable — оружие не в статусе available
//     (покрывает и allocated, и maintenance);
//  3. models.ErrTypeLimitReached / models.ErrInvalidTypeCombination —
//     нарушено правило совместимости типов (см. CheckComposition).
func Validate(requester, target *models.User, weapon *models.Weapon, heldTypes []models.WeaponType) error {
	if requester.IsAdmin() || target.IsAdmin() {
		return models.ErrAdminNotAllowed
	}
	if weapon.Status != models.WeaponStatusAvailable {
		return models.ErrWeaponNotAvailable
	}
	return CheckComposition(heldTypes, weapon.Type)
}

// CheckComposition проверяет правило совместимости типов: набор типов
// на руках плюс запрошенный тип должен оставаться одним из допустимых
// наборов {pistol}, {shotgun}, {rifle}, {pistol, shotgun}, {pistol, rifle}.
// Второй экземпляр того же типа — ErrTypeLimitReached, shotgun вместе
// с rifle — ErrInvalidTypeCombination.
func CheckComposition(held []models.WeaponType, candidate models.WeaponType) error {
	var hasShotgun, hasRifle bool
	for _, t := range held {
		if t == candidate {
			return models.ErrTypeLimitReached
		}
		switch t {
		case models.WeaponTypeShotgun:
			hasShotgun = true
		case models.WeaponTypeRifle:
			hasRifle = true
		}
	}

	switch candidate {
	case models.WeaponTypeShotgun:
		if hasRifle {
			return models.ErrInvalidTypeCombination
		}
	case models.WeaponTypeRifle:
		if hasShotgun {
			return models.ErrInvalidTypeCombination
		}
	}
	return nil
}
