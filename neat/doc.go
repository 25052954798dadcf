// Package neat implements NeuroEvolution of Augmenting Topologies (NEAT),
// following the neat-python configuration format.
//
// A Population evolves genomes one generation at a time. The caller's
// FitnessFunc scores every genome, usually by building a network with
// package nn and letting it drive:
//
//	config, err := neat.LoadConfig("configs/racer.ini")
//	if err != nil {
//		return err
//	}
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		return err
//	}
//	pop.SetLogger(log)
//	winner, err := pop.Run(ctx, evaluate, 100)
//
// Fitness is reset to zero before each evaluation, so fitness functions may
// accumulate rewards with Genome.AddFitness.
package neat
