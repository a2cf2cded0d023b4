package bench

import (
	"github.com/YuminosukeSato/pumpprep/core/model"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// Classifier names accepted by NewClassifierFactory.
const (
	ModelMajority = "majority"
	ModelLogistic = "logistic"
)

// Models lists the built-in classifiers.
func Models() []string {
	return []string{ModelMajority, ModelLogistic}
}

// NewClassifierFactory returns a factory for the named classifier.
// seed is used by classifiers with a random initialization.
func NewClassifierFactory(name string, seed uint64) (model.ClassifierFactory, error) {
	switch name {
	case ModelMajority:
		return func() model.Classifier { return NewMajorityClassifier() }, nil
	case ModelLogistic:
		return func() model.Classifier { return NewLogisticRegression(WithSeed(seed)) }, nil
	default:
		return nil, errors.NewValidationError("model", "must be majority or logistic", name)
	}
}
