package validation

import (
	"crypto/rand"
	"math/big"
	"unicode"
)

// orderNumberBodyLength задаёт количество случайных цифр номера заказа без контрольной.
const orderNumberBodyLength = 11

// IsValidOrderNumber проверяет номер заказа по алгоритму Луна.
func IsValidOrderNumber(number string) bool {
	if number == "" {
		return false
	}

	sum, ok := luhnSum(number, false)
	if !ok {
		return false
	}

	return sum%10 == 0
}

// OrderNumberCheckDigit вычисляет контрольную цифру Луна для цифровой строки.
func OrderNumberCheckDigit(body string) (byte, bool) {
	if body == "" {
		return 0, false
	}

	sum, ok := luhnSum(body, true)
	if !ok {
		return 0, false
	}

	return byte('0' + (10-sum%10)%10), true
}

// NewOrderNumber генерирует номер заказа, проходящий проверку IsValidOrderNumber.
func NewOrderNumber() (string, error) {
	digits := make([]byte, orderNumberBodyLength, orderNumberBodyLength+1)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	if digits[0] == '0' {
		digits[0] = '1'
	}

	check, _ := OrderNumberCheckDigit(string(digits))
	return string(append(digits, check)), nil
}

func luhnSum(number string, double bool) (int, bool) {
	sum := 0

	for i := len(number) - 1; i >= 0; i-- {
		ch := rune(number[i])
		if !unicode.IsDigit(ch) {
			return 0, false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum, true
}
