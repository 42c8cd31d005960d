package application

// TrainModelCommand trains the classifier on the configured training dataset.
// Zero values keep the service defaults.
type TrainModelCommand struct {
	Neighbors int     `json:"neighbors" binding:"omitempty,gte=1,lte=50"`
	TestSize  float64 `json:"testSize" binding:"omitempty,gt=0,lt=1"`
	Seed      *int64  `json:"seed"`
}

// PredictCommand classifies one order entered by hand
type PredictCommand struct {
	Volume   *float64 `json:"volumen" binding:"required,gte=0"`
	Region   string   `json:"region" binding:"required,max=64,safe_string"`
	Category string   `json:"categoria_de_productos" binding:"required,max=64,safe_string"`
}

// PredictUploadCommand classifies every row of an uploaded csv or xlsx file
type PredictUploadCommand struct {
	Filename string
	Content  []byte
}

// ListBatchesQuery lists recent prediction batches
type ListBatchesQuery struct {
	Limit int
}

// DeliveryKPIQuery selects the slice of the delivery dashboard
type DeliveryKPIQuery struct {
	Category string `form:"category"`
	State    string `form:"state"`
	Tier     string `form:"tier"`
}

// ProjectionKPIQuery selects the slice of the projection dashboard
type ProjectionKPIQuery struct {
	Category string `form:"category"`
	Region   string `form:"region"`
	Tier     string `form:"tier"`
}

// ProfileQuery asks for the column profile of a named dataset
type ProfileQuery struct {
	Dataset string
}
