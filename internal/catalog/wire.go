package catalog

func NewModule(repo Repository) *Service {
	return NewService(repo)
}
