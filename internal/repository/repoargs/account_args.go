package repoargs

type CreateAccount struct {
	ID       string
	Username string
	Password string
}
