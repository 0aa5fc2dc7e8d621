package service

import "golang.org/x/crypto/bcrypt"

func hashPassword(passwd string, cost int) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), cost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}
