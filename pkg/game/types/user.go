package types

// User is an account known to the server. Registration and credentials
// live outside this service; only the public identity is kept here.
type User struct {
	ID       string `json:"id" bson:"-"`
	Username string `json:"username" bson:"username"`
}
