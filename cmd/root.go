/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package cmd

/*****************************************************************************************************************/

import (
	"github.com/spf13/cobra"

	"github.com/thespacedoctor/soxs-pipeline/internal/recipe"
)

/*****************************************************************************************************************/

var rootCommand = &cobra.Command{
	Use:   "soxs-pipeline",
	Short: "soxs-pipeline fits and inverts the echelle dispersion solution from pinhole arc-lamp exposures.",
	Long:  "soxs-pipeline fits and inverts the echelle dispersion solution from pinhole arc-lamp exposures.",
}

/*****************************************************************************************************************/

func init() {
	rootCommand.AddCommand(recipe.DispSolutionCommand)
	rootCommand.AddCommand(recipe.SpatSolutionCommand)
}

/*****************************************************************************************************************/

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		panic(err)
	}
}

/*****************************************************************************************************************/
