package centers

type Repo interface {
	Upsert(center *Center) error
	Delete(centerID string) error
	Get(centerID string) (*Center, error)
	List(offset, limit int) ([]*Center, error)
}
